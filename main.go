// Package main runs the banking back-office API: user registration and login,
// accounts and their ledger, transfers, budgets, bills, statements and the
// support assistant.
//
// Key Components:
// - PostgreSQL: stores users, accounts, transactions, transfers, budgets and bills.
// - MongoDB: keeps the activity log of committed postings and support conversations.
// - RabbitMQ: queues due transfers for asynchronous settlement.
// - Gin: HTTP web framework used for handling API requests.
//
// Without DATABASE_URL the service runs on an in-memory store; without
// MONGO_URI the activity log is off; without RABBITMQ_URI transfers settle
// inline.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bankinghub/activity"
	"bankinghub/auth"
	"bankinghub/bills"
	"bankinghub/budget"
	"bankinghub/ledger"
	"bankinghub/notify"
	"bankinghub/store"
	"bankinghub/store/memory"
	"bankinghub/store/postgres"
	"bankinghub/support"
	"bankinghub/users"
)

// newServer wires the services over st. act may be nil.
func newServer(cfg Config, st store.Store, mailer notify.Mailer, act *activity.Log) *Server {
	budgets := budget.New(st)
	observers := []ledger.PostingObserver{budgets}
	var archive support.Archive
	if act != nil {
		observers = append(observers, act)
		archive = act
	}
	led := ledger.New(st, ledger.Config{
		AccountPrefix:  cfg.AccountPrefix,
		InitialBalance: cfg.InitialBalance,
		ExternalFee:    cfg.ExternalFee,
	}, observers...)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)

	s := &Server{
		cfg:        cfg,
		tokens:     tokens,
		users:      users.New(st, led, tokens, mailer, cfg.BankName),
		ledger:     led,
		budgets:    budgets,
		bills:      bills.New(st, led),
		support:    support.NewResponder(support.Contact{BankName: cfg.BankName}, archive),
		dispatcher: inlineDispatcher{ledger: led},
		now:        func() time.Time { return time.Now().UTC() },
	}
	if act != nil {
		s.activity = act
	}
	return s
}

func main() {
	cfg, err := LoadConfig(os.Getenv)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL
	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer pg.Close()
		st = pg
	} else {
		log.Printf("DATABASE_URL not set, using in-memory store")
		st = memory.New()
	}

	// Connect to MongoDB
	var act *activity.Log
	if cfg.MongoURI != "" {
		client, err := activity.Connect(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatal(err)
		}
		defer client.Disconnect(context.Background())
		act = activity.NewLog(client.Database(activity.Database))
	}

	var mailer notify.Mailer = notify.Log{}
	if cfg.SMTPAddr != "" {
		mailer = notify.SMTP{Addr: cfg.SMTPAddr, From: cfg.SMTPFrom, Username: cfg.SMTPUser, Password: cfg.SMTPPassword}
	}

	srv := newServer(cfg, st, mailer, act)

	// Initialize RabbitMQ and start the transfer consumer
	if cfg.RabbitMQURI != "" {
		rabbitMQ, err := NewRabbitMQ(cfg.RabbitMQURI)
		if err != nil {
			log.Fatal(err)
		}
		defer rabbitMQ.Close()
		srv.dispatcher = rabbitMQ

		consumer := NewTransferConsumer(srv.ledger, rabbitMQ)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Printf("transfer consumer stopped: %v", err)
			}
		}()
	}

	go NewScheduler(srv.ledger, srv.bills, srv.dispatcher, cfg.SchedulerInterval).Run(ctx)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}
