package server

import (
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/collabhq/deltacollab/authn"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandlerConfig controls authentication at the WebSocket upgrade boundary.
// When JWTSecret is empty, auth is disabled and every connection falls
// back to the random display identity newClient generates in dev mode.
type HandlerConfig struct {
	JWTSecret []byte
}

// NewHandler creates the HTTP handler with all routes: document metadata
// endpoints backed by the Hub's store, and the WebSocket upgrade endpoint.
func NewHandler(hub *Hub, cfg HandlerConfig) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/documents", func(c *gin.Context) {
		docs, err := hub.store.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, docs)
	})

	r.GET("/documents/:id", func(c *gin.Context) {
		info, err := hub.store.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, info)
	})

	r.GET("/ws", func(c *gin.Context) {
		id, name, ok := authenticate(c, cfg.JWTSecret)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.WithError(err).Error("server: websocket upgrade failed")
			return
		}
		client := newClient(hub, conn, id, name)
		go client.WritePump()
		go client.ReadPump()
	})

	return r
}

// authenticate validates the token query parameter when auth is enabled.
// With auth disabled it always succeeds with an empty identity, letting
// newClient assign the dev-mode random display name.
func authenticate(c *gin.Context, secret []byte) (id, name string, ok bool) {
	if len(secret) == 0 {
		return "", "", true
	}
	token := c.Query("token")
	if token == "" {
		return "", "", false
	}
	claims, err := authn.ParseToken(secret, token)
	if err != nil {
		return "", "", false
	}
	return claims.ClientID, claims.Name, true
}
