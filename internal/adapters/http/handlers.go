package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/vitalia/teleconsulta/internal/core"
)

type restHandlers struct {
	meetings core.MeetingProvider
	history  core.HistoryProvider
}

func (h *restHandlers) getPatientHistory(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		id = "1"
	}
	c.JSON(http.StatusOK, h.history.Lookup(id))
}

type createMeetingRequest struct {
	ExternalMeetingID string `json:"externalMeetingId"`
}

func (h *restHandlers) createMeeting(c *gin.Context) {
	var req createMeetingRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.meetings.CreateMeeting(c.Request.Context(), req.ExternalMeetingID)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create meeting")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "No se pudo crear la reunión",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *restHandlers) getMeeting(c *gin.Context) {
	meeting, ok := h.meetings.GetMeeting(c.Param("meetingId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Reunión no encontrada o expirada"})
		return
	}
	c.JSON(http.StatusOK, meeting)
}

func (h *restHandlers) deleteMeeting(c *gin.Context) {
	if err := h.meetings.DeleteMeeting(c.Request.Context(), c.Param("meetingId")); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("delete meeting")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "No se pudo eliminar la reunión",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type createAttendeeRequest struct {
	MeetingID      string `json:"meetingId"`
	ExternalUserID string `json:"externalUserId"`
}

func (h *restHandlers) createAttendee(c *gin.Context) {
	var req createAttendeeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MeetingID == "" || req.ExternalUserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Faltan meetingId o externalUserId"})
		return
	}
	attendee, err := h.meetings.CreateAttendee(c.Request.Context(), req.MeetingID, req.ExternalUserID)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create attendee")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "No se pudo crear el asistente",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, attendee)
}
