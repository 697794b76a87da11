package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/marianfoo/bluesky-bots/models"
	"github.com/marianfoo/bluesky-bots/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

type ServerConfig struct {

	// The store to read status and recent posts from
	Store *store.Store

	// Broadcast channels to pass published posts to SSE clients
	Broadcaster *Broadcaster
}

// Make it sync
type Broadcaster struct {
	sync.RWMutex
	publishClients map[string]chan models.PublishEvent
}

// Constructor
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		publishClients: make(map[string]chan models.PublishEvent, 100),
	}
}

func (b *Broadcaster) BroadcastPublish(event models.PublishEvent) {
	b.RLock()
	defer b.RUnlock()

	for id, client := range b.publishClients {
		select {
		case client <- event: // Non-blocking send
		default:
			log.Warnf("Client channel full, skipping event for client: %v", id)
		}
	}
}

// Function to add a client to the broadcaster
func (b *Broadcaster) AddClient(key string, publishClient chan models.PublishEvent) {
	b.Lock()
	defer b.Unlock()
	b.publishClients[key] = publishClient
	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.publishClients),
	}).Info("Adding client to broadcaster")
}

// Function to remove a client from the broadcaster
func (b *Broadcaster) RemoveClient(key string) {
	b.Lock()
	defer b.Unlock()

	if client, ok := b.publishClients[key]; ok { // Check if the client exists
		close(client)                 // Safely close the channel
		delete(b.publishClients, key) // Remove from the map
	}

	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.publishClients),
	}).Info("Removed client from broadcaster")
}

func (b *Broadcaster) Shutdown() {
	log.Info("Shutting down broadcaster")
	b.Lock()
	defer b.Unlock()
	for key, client := range b.publishClients {
		close(client)
		delete(b.publishClients, key)
	}
}

// Returns a fiber.App instance to be used as the status HTTP server for the
// bots: health, metrics, per-bot counters and an SSE stream of published
// posts.
func Server(config *ServerConfig) *fiber.App {

	bc := config.Broadcaster

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		// start timer
		start := time.Now()

		// next routes
		err := c.Next()

		// stop timer
		stop := time.Now()

		// Diff
		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"latency": stop.Sub(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Per-bot post counts and last post times
	app.Get("/bots", func(c *fiber.Ctx) error {
		statuses, err := config.Store.CountPerBot(c.Context())
		if err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Error getting bot statuses")
			return c.Status(500).SendString("Error getting bot statuses")
		}
		if statuses == nil {
			statuses = []models.BotStatus{}
		}
		return c.JSON(statuses)
	})

	// Most recently published posts across all bots
	app.Get("/posts", func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 50)
		if limit < 1 || limit > 200 {
			limit = 50
		}

		records, err := config.Store.RecentPosts(c.Context(), limit)
		if err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Error getting recent posts")
			return c.Status(500).SendString("Error getting recent posts")
		}
		if records == nil {
			records = []models.PostedRecord{}
		}
		return c.JSON(records)
	})

	app.Delete("/posts/sse", func(c *fiber.Ctx) error {
		key := c.Query("key", "")
		bc.RemoveClient(key)
		return c.Status(200).SendString("OK")
	})

	app.Get("/posts/sse", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("Transfer-Encoding", "chunked")

		// Unique client key
		key := uuid.New().String()
		ssePublishChannel := make(chan models.PublishEvent, 10) // Buffered channel
		aliveChan := time.NewTicker(5 * time.Second)

		defer aliveChan.Stop()

		// Register the client
		bc.AddClient(key, ssePublishChannel)

		// Cleanup function
		cleanup := func() {
			log.Infof("Cleaning up SSE stream for client: %s", key)
			bc.RemoveClient(key)
		}

		// Use StreamWriter to manage SSE streaming
		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer cleanup()

			// Send initial event with client key
			fmt.Fprintf(w, "event: init\ndata: %s\n\n", key)
			if err := w.Flush(); err != nil {
				log.Errorf("Failed to send init event: %v", err)
				return
			}

			// Start streaming loop
			for {
				select {
				case <-aliveChan.C:
					// Send keep-alive pings
					if _, err := fmt.Fprintf(w, "event: ping\ndata: \n\n"); err != nil {
						log.Warnf("Failed to send ping to client %s: %v", key, err)
						return
					}
					if err := w.Flush(); err != nil {
						log.Warnf("Failed to flush ping for client %s: %v", key, err)
						return
					}

				case event, ok := <-ssePublishChannel:
					if !ok {
						log.Warnf("PublishChannel closed for client %s", key)
						return
					}
					jsonEvent, err := json.Marshal(event)
					if err != nil {
						log.Errorf("Error marshalling event for client %s: %v", key, err)
						continue
					}
					if _, err := fmt.Fprintf(w, "event: publish\ndata: %s\n\n", jsonEvent); err != nil {
						log.Warnf("Failed to send publish event to client %s: %v", key, err)
						return
					}
					if err := w.Flush(); err != nil {
						log.Warnf("Failed to flush publish event for client %s: %v", key, err)
						return
					}
				}
			}
		}))

		return nil
	})

	return app
}
