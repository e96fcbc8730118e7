package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vitalia/teleconsulta/internal/adapters/signal"
	"github.com/vitalia/teleconsulta/internal/config"
	"github.com/vitalia/teleconsulta/internal/core"
)

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, meetings core.MeetingProvider, history core.HistoryProvider, ctl *signal.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("ConsultaSessions", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK", "message": "Video Consulta Backend API está funcionando"})
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")

	h := &restHandlers{meetings: meetings, history: history}

	api := r.Group("/api")
	api.GET("/patient-history/:id", h.getPatientHistory)

	chime := api.Group("/chime")
	chime.POST("/meeting", h.createMeeting)
	chime.GET("/meeting/:meetingId", h.getMeeting)
	chime.DELETE("/meeting/:meetingId", h.deleteMeeting)
	chime.POST("/attendee", h.createAttendee)

	r.GET("/ws", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("ct", c.GetString("client_token")).Msg("ws endpoint hit")
		ctl.HandleConsult(ctx, c)
	})

	return r
}
