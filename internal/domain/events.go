package domain

// Inbound event names.
const (
	EventOpenSession          = "open-session"
	EventCloseSession         = "close-session"
	EventJoin                 = "join"
	EventLeave                = "leave"
	EventUpdatePlaybackStatus = "update-playback-status"
	EventSyncNewcomer         = "sync-newcomer"
	EventAddAnnotation        = "add-annotation"
	EventRemoveAnnotation     = "remove-annotation"
	EventUpdateAnnotation     = "update-annotation"
	EventChangeVersion        = "change-version"
	EventPanZoomChanged       = "panzoom-changed"
	EventComparisonPanZoom    = "comparison-panzoom-changed"
)

// Outbound event names. The annotation, version and panzoom events are
// relayed verbatim under their inbound names.
const (
	EventRoomPeopleUpdated = "room-people-updated"
	EventRoomUpdated       = "room-updated"
)
