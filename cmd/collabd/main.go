package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/IBM/sarama"
	"github.com/apex/log"
	redis "github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/collabhq/deltacollab/broadcast"
	"github.com/collabhq/deltacollab/internal/config"
	"github.com/collabhq/deltacollab/internal/logging"
	"github.com/collabhq/deltacollab/ot"
	"github.com/collabhq/deltacollab/presence"
	"github.com/collabhq/deltacollab/server"
	"github.com/collabhq/deltacollab/store"
)

func main() {
	configPath := pflag.String("config", "", "path to a YAML config file")
	config.RegisterFlags(pflag.CommandLine)
	pflag.Parse()

	cfg, err := config.Load(*configPath, pflag.CommandLine)
	if err != nil {
		log.WithError(err).Fatal("collabd: failed to load configuration")
	}

	logging.Init(cfg.Env, cfg.LogLevel)

	docStore, closeStore := mustOpenStore(cfg)
	defer closeStore()

	dispatcher, subscriber := mustOpenBroadcast(cfg)
	if dispatcher != nil {
		defer dispatcher.Close()
	}

	presenceCache := mustOpenPresence(cfg)

	engine := &ot.JupiterEngine{}
	hub := server.NewHub(docStore, engine, presenceCache, dispatcher)
	go hub.Run()

	if subscriber != nil {
		go func() {
			ctx := context.Background()
			if err := subscriber.Run(ctx); err != nil {
				log.WithError(err).Error("collabd: kafka subscriber stopped")
			}
		}()
	}

	handler := server.NewHandler(hub, server.HandlerConfig{
		JWTSecret: []byte(cfg.Auth.JWTSecret),
	})

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handler,
	}

	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("collabd: listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("collabd: server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("collabd: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Error("collabd: graceful shutdown failed")
	}
}

// mustOpenStore wires the configured store.DocumentStore backend, wrapped
// in store.CachedStore when the backend is not already memory-resident.
func mustOpenStore(cfg *config.Config) (store.DocumentStore, func()) {
	switch cfg.Store.Backend {
	case config.StoreFirestore:
		client, err := firestore.NewClient(context.Background(), cfg.Store.FirestoreProject)
		if err != nil {
			log.WithError(err).Fatal("collabd: failed to open firestore client")
		}
		backing := store.NewFirestoreStore(client)
		cached := store.NewCachedStore(backing, cfg.Store.FlushInterval)
		return cached, func() {
			cached.Close()
			client.Close()
		}
	case config.StoreSQL:
		backing, err := store.OpenSQLStore(cfg.Store.MySQLDSN)
		if err != nil {
			log.WithError(err).Fatal("collabd: failed to open sql store")
		}
		cached := store.NewCachedStore(backing, cfg.Store.FlushInterval)
		return cached, func() { cached.Close() }
	default:
		return store.NewMemoryStore(), func() {}
	}
}

// mustOpenBroadcast wires a Kafka-backed Dispatcher and Subscriber when
// brokers are configured. The Dispatcher publishes this instance's accepted
// edits; the Subscriber's handler only logs events received from other
// instances and does not apply them to local sessions or clients.
// With no brokers configured, broadcast is disabled and the Hub falls
// back to serving only its own directly-connected clients.
func mustOpenBroadcast(cfg *config.Config) (*broadcast.Dispatcher, *broadcast.Subscriber) {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("collabd: no kafka brokers configured, cross-instance broadcast disabled")
		return nil, nil
	}

	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.RequiredAcks = sarama.WaitForLocal

	producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, saramaCfg)
	if err != nil {
		log.WithError(err).Fatal("collabd: failed to create kafka producer")
	}
	dispatcher := broadcast.NewDispatcher(producer, cfg.Kafka.Topic, broadcast.DefaultDispatcherOptions())

	group, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.Kafka.Group, saramaCfg)
	if err != nil {
		log.WithError(err).Fatal("collabd: failed to create kafka consumer group")
	}
	subscriber := broadcast.NewSubscriber(group, []string{cfg.Kafka.Topic}, func(evt broadcast.DocOpEvent) {
		log.WithField("docId", evt.DocID).WithField("revision", evt.Revision).Debug("collabd: received remote operation")
	})

	return dispatcher, subscriber
}

// mustOpenPresence wires the Redis-backed presence.Cache, or returns nil
// (presence tracking disabled) when no Redis address is configured.
func mustOpenPresence(cfg *config.Config) *presence.Cache {
	if cfg.Redis.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	return presence.NewCache(rdb)
}
