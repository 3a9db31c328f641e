package relay

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SetupRouter builds the gin router exposing the signaling WebSocket
// and the interview REST boundary the agents consume.
func SetupRouter(r *Relay, store *InterviewStore, mode string) *gin.Engine {
	gin.SetMode(mode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/ws", func(c *gin.Context) {
		r.HandleWS(c.Writer, c.Request)
	})

	router.GET("/interviews/:sessionId", func(c *gin.Context) {
		iv, err := store.Get(c.Param("sessionId"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, iv)
	})

	router.POST("/interviews", func(c *gin.Context) {
		var req struct {
			Title       string    `json:"title" binding:"required"`
			ScheduledAt time.Time `json:"scheduledAt"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.ScheduledAt.IsZero() {
			req.ScheduledAt = time.Now()
		}
		c.JSON(http.StatusCreated, store.Create(req.Title, req.ScheduledAt))
	})

	router.POST("/interviews/:sessionId/start", func(c *gin.Context) {
		iv, err := store.Start(c.Param("sessionId"))
		if err != nil {
			status := http.StatusNotFound
			if err != ErrNotFound {
				status = http.StatusConflict
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, iv)
	})

	router.POST("/interviews/:sessionId/end", func(c *gin.Context) {
		iv, err := store.End(c.Param("sessionId"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		// Kick both sides out of the room before reporting success.
		r.EndSession(c.Param("sessionId"))
		c.JSON(http.StatusOK, iv)
	})

	return router
}
