package domain

import "encoding/json"

// Comparing holds the comparison-mode settings of a review session. Incoming
// payloads are decoded into this struct, so only the listed field names are
// ever accepted from a client; anything else is dropped.
type Comparing struct {
	Enable                 bool    `json:"enable"`
	TaskType               *string `json:"task_type"`
	Revision               *string `json:"revision"`
	Mode                   string  `json:"mode"`
	ComparisonPreviewIndex int     `json:"comparison_preview_index"`
}

// State holds the playback fields of a room. It is replaced field by field
// through ApplyPlaybackUpdate, never written to directly by callers.
type State struct {
	PlaylistId              string    `json:"playlist_id"`
	IsPlaying               bool      `json:"is_playing"`
	IsRepeating             bool      `json:"is_repeating"`
	CurrentEntityId         *string   `json:"current_entity_id"`
	CurrentEntityIndex      *int      `json:"current_entity_index"`
	CurrentPreviewFileId    *string   `json:"current_preview_file_id"`
	CurrentPreviewFileIndex *int      `json:"current_preview_file_index"`
	CurrentFrame            int       `json:"current_frame"`
	HandleIn                *int      `json:"handle_in"`
	HandleOut               *int      `json:"handle_out"`
	Speed                   *float64  `json:"speed"`
	IsAnnotationsDisplayed  bool      `json:"is_annotations_displayed"`
	IsZoomEnabled           bool      `json:"is_zoom_enabled"`
	IsWaveformDisplayed     bool      `json:"is_waveform_displayed"`
	IsLaserMode             bool      `json:"is_laser_mode"`
	Comparing               Comparing `json:"comparing"`
}

// Room is the synchronized-state unit for one playlist review session.
type Room struct {
	State  State
	people map[string]struct{}
}

func NewRoom(playlistId string) *Room {
	return &Room{
		State: State{
			PlaylistId:   playlistId,
			CurrentFrame: 0,
			Comparing: Comparing{
				Mode: "sidebyside",
			},
		},
		people: make(map[string]struct{}),
	}
}

// AddPerson is idempotent: adding a user already present is a no-op.
func (r *Room) AddPerson(userId string) {
	r.people[userId] = struct{}{}
}

func (r *Room) RemovePerson(userId string) {
	delete(r.people, userId)
}

func (r *Room) HasPerson(userId string) bool {
	_, ok := r.people[userId]
	return ok
}

func (r *Room) Empty() bool {
	return len(r.people) == 0
}

func (r *Room) People() []string {
	people := make([]string, 0, len(r.people))
	for userId := range r.people {
		people = append(people, userId)
	}
	return people
}

// Snapshot is the full-state view of a room broadcast to its channel.
type Snapshot struct {
	People []string `json:"people"`
	State
}

func (r *Room) Snapshot() Snapshot {
	return Snapshot{
		People: r.People(),
		State:  r.State,
	}
}

// Number decodes a JSON value that is only meaningful when numeric. A
// non-numeric value is ignored rather than failing the whole payload.
type Number struct {
	Value float64
	Valid bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return nil
	}
	n.Value = f
	n.Valid = true
	return nil
}

// PlaybackUpdate carries the client-settable playback fields. Pointer fields
// distinguish "absent" from a zero value: absent fields keep the room's
// current value, except is_playing and is_repeating which reset to false and
// current_entity_index which always takes the payload value.
type PlaybackUpdate struct {
	IsPlaying               bool       `json:"is_playing"`
	IsRepeating             bool       `json:"is_repeating"`
	CurrentEntityId         *string    `json:"current_entity_id"`
	CurrentEntityIndex      *int       `json:"current_entity_index"`
	CurrentPreviewFileId    *string    `json:"current_preview_file_id"`
	CurrentPreviewFileIndex *int       `json:"current_preview_file_index"`
	CurrentFrame            *int       `json:"current_frame"`
	HandleIn                *int       `json:"handle_in"`
	HandleOut               *int       `json:"handle_out"`
	Speed                   Number     `json:"speed"`
	IsAnnotationsDisplayed  *bool      `json:"is_annotations_displayed"`
	IsZoomEnabled           *bool      `json:"is_zoom_enabled"`
	IsWaveformDisplayed     *bool      `json:"is_waveform_displayed"`
	IsLaserMode             *bool      `json:"is_laser_mode"`
	Comparing               *Comparing `json:"comparing"`
}

// ApplyPlaybackUpdate overwrites the room's playback fields from u. The same
// assignment is used to seed a fresh room from its first joiner's payload.
func (r *Room) ApplyPlaybackUpdate(u *PlaybackUpdate) {
	r.State.IsPlaying = u.IsPlaying
	r.State.IsRepeating = u.IsRepeating
	r.State.CurrentEntityIndex = u.CurrentEntityIndex

	if u.CurrentEntityId != nil {
		r.State.CurrentEntityId = u.CurrentEntityId
	}
	if u.CurrentPreviewFileId != nil {
		r.State.CurrentPreviewFileId = u.CurrentPreviewFileId
	}
	if u.CurrentPreviewFileIndex != nil {
		r.State.CurrentPreviewFileIndex = u.CurrentPreviewFileIndex
	}
	if u.CurrentFrame != nil {
		r.State.CurrentFrame = *u.CurrentFrame
	}
	if u.HandleIn != nil {
		r.State.HandleIn = u.HandleIn
	}
	if u.HandleOut != nil {
		r.State.HandleOut = u.HandleOut
	}
	if u.Speed.Valid {
		r.State.Speed = &u.Speed.Value
	}
	if u.IsAnnotationsDisplayed != nil {
		r.State.IsAnnotationsDisplayed = *u.IsAnnotationsDisplayed
	}
	if u.IsZoomEnabled != nil {
		r.State.IsZoomEnabled = *u.IsZoomEnabled
	}
	if u.IsWaveformDisplayed != nil {
		r.State.IsWaveformDisplayed = *u.IsWaveformDisplayed
	}
	if u.IsLaserMode != nil {
		r.State.IsLaserMode = *u.IsLaserMode
	}
	if u.Comparing != nil {
		r.State.Comparing = *u.Comparing
	}
}
