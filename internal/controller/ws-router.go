package controller

import (
	"github.com/reviewroom/server/internal/domain"
	"github.com/reviewroom/server/pkg/wsrouter"
)

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Use(c.messageIdWSMw())
	mux.Use(c.loggerWSMw())

	// session
	mux.Handle(domain.EventOpenSession, c.handleOpenSession)
	mux.Handle(domain.EventCloseSession, c.handleCloseSession)
	mux.Handle(domain.EventJoin, c.handleJoin)
	mux.Handle(domain.EventLeave, c.handleLeave)

	// playback
	mux.Handle(domain.EventUpdatePlaybackStatus, c.handleUpdatePlaybackStatus)
	mux.Handle(domain.EventSyncNewcomer, c.handleSyncNewcomer)

	// live-edit relays
	mux.Handle(domain.EventAddAnnotation, c.relayHandler(domain.EventAddAnnotation))
	mux.Handle(domain.EventRemoveAnnotation, c.relayHandler(domain.EventRemoveAnnotation))
	mux.Handle(domain.EventUpdateAnnotation, c.relayHandler(domain.EventUpdateAnnotation))
	mux.Handle(domain.EventChangeVersion, c.relayHandler(domain.EventChangeVersion))
	mux.Handle(domain.EventPanZoomChanged, c.relayHandler(domain.EventPanZoomChanged))
	mux.Handle(domain.EventComparisonPanZoom, c.relayHandler(domain.EventComparisonPanZoom))

	return mux
}
