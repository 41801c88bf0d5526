package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/raynx/hrm-portal/attendance"
	"github.com/raynx/hrm-portal/config"
	"github.com/raynx/hrm-portal/event"
	"github.com/raynx/hrm-portal/handlers"
	"github.com/raynx/hrm-portal/hrmapi"
	"github.com/raynx/hrm-portal/notification"
	"github.com/raynx/hrm-portal/push"
	"github.com/raynx/hrm-portal/session"
)

var logger *slog.Logger

func main() {
	var err error

	port := flag.String("p", "8463", "port the portal UI talks to")
	logLevelFlag := flag.String("l", "info", "slog log level")
	envFile := flag.String("e", ".env", "env file to read settings from")
	flag.Parse()

	//setup logger
	var logLevel = new(slog.LevelVar)

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	logLevel.Set(slog.LevelInfo)
	if runtime.GOOS == "windows" {
		*logLevelFlag = "debug"
		logger.Info("running from Windows, logging set to debug")
	}

	err = setLogLevel(*logLevelFlag, logLevel)
	if err != nil {
		logger.Error("can not set log level", "error", err)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.Error("can not load config", "error", err)
		os.Exit(1)
	}

	wsURL := cfg.WSURL
	if wsURL == "" {
		wsURL, err = push.Endpoint(cfg.APIURL)
		if err != nil {
			logger.Error("can not derive push endpoint", "api", cfg.APIURL, "error", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//session persistence, api client and session store reference each other
	persister, err := cfg.OpenSessionStore()
	if err != nil {
		logger.Error("can not open session store", "store", cfg.SessionStore, "error", err)
		os.Exit(1)
	}
	defer persister.Close()

	client := hrmapi.New(cfg.APIURL)
	store := session.New(persister, client)
	client.SetTokenSource(store)
	client.SetUnauthorizedHandler(store.Logout)

	bus := event.NewBus()

	//notifications follow the session: loaded and pushed while logged in, emptied on logout
	feed := notification.NewFeed(client, notification.WithRefreshInterval(cfg.NotificationRefresh))
	unbind := feed.Bind(ctx, store, push.NewStompDialer(wsURL))
	defer unbind()

	if cfg.AutoCheckout {
		stopAuto := bindAutoCheckout(ctx, store, client, bus, cfg.Attendance)
		defer stopAuto()
	}

	store.Restore(ctx)

	h := handlers.New(store, client, feed, bus, cfg.Attendance)
	defer h.Close()

	//start up a server to serve the portal site and set up the handlers for the UI to use
	router := gin.Default()

	router.Use(corsMiddleware())

	// health endpoint
	router.GET("/healthz", func(context *gin.Context) {
		context.JSON(http.StatusOK, gin.H{
			"message": "healthy",
		})
	})

	router.GET("/ping", func(context *gin.Context) {
		context.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	router.GET("/status", func(context *gin.Context) {
		context.JSON(http.StatusOK, gin.H{
			"message": "good",
			"session": store.State().String(),
			"api":     client.BaseURL(),
		})
	})

	router.GET("/logLevel/:level", func(context *gin.Context) {
		err := setLogLevel(context.Param("level"), logLevel)
		if err != nil {
			logger.Error("can not set log level", "error", err)
			context.JSON(http.StatusInternalServerError, err.Error())
			return
		}
		context.JSON(http.StatusOK, gin.H{
			"current logLevel": logLevel.Level(),
		})
	})

	router.GET("/logLevel", func(context *gin.Context) {
		context.JSON(http.StatusOK, gin.H{
			"current logLevel": logLevel.Level(),
		})
	})

	h.Register(router)

	//serve the portal web page
	sitePath := "/portal"
	router.GET("/", func(context *gin.Context) {
		context.Redirect(http.StatusTemporaryRedirect, sitePath)
	})

	webRoot := "./dist/portal"
	router.StaticFS(sitePath, http.Dir(webRoot))

	router.NoRoute(func(context *gin.Context) {
		if strings.HasPrefix(context.Request.RequestURI, "/api/") {
			context.JSON(http.StatusNotFound, gin.H{"success": false, "message": "not found"})
			return
		}
		if strings.HasPrefix(context.Request.RequestURI, sitePath) {
			// Only serve the index if we are already in the portal sitePath
			context.File(webRoot + "/index.html")
			return
		}
		context.Redirect(http.StatusFound, sitePath)
	})

	listeningPort := ":" + *port
	server := &http.Server{
		Addr:           listeningPort,
		Handler:        router,
		MaxHeaderBytes: 1024 * 10,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(sctx); err != nil {
			logger.Error("can not shut down cleanly", "error", err)
		}
	}()

	logger.Info("starting portal", "port", *port, "api", cfg.APIURL, "push", wsURL, "store", cfg.SessionStore)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
	}
}

// bindAutoCheckout schedules the end of day checkout for every login and cancels it on logout
func bindAutoCheckout(ctx context.Context, store *session.Store, api attendance.AutoCheckoutAPI, bus *event.Bus, cfg attendance.Config) func() {
	var mu sync.Mutex
	var running *attendance.AutoCheckout

	stopRunning := func(wait bool) {
		mu.Lock()
		r := running
		running = nil
		mu.Unlock()
		if r == nil {
			return
		}
		if wait {
			r.Stop()
			return
		}
		// a 401 from the checkout itself ends the session on the checkout's goroutine
		go r.Stop()
	}

	unsubscribe := store.OnChange(func(state session.State, sess *session.Session) {
		stopRunning(false)
		if state != session.Authenticated {
			return
		}
		a := attendance.StartAutoCheckout(ctx, api, bus, cfg, time.Now())
		mu.Lock()
		running = a
		mu.Unlock()
	})

	return func() {
		unsubscribe()
		stopRunning(true)
	}
}

func setLogLevel(level string, logLevel *slog.LevelVar) error {
	level = strings.ToLower(level)
	if level == "debug" {
		logLevel.Set(slog.LevelDebug)
	} else if level == "info" {
		logLevel.Set(slog.LevelInfo)
	} else if level == "warn" {
		logLevel.Set(slog.LevelWarn)
	} else if level == "error" {
		logLevel.Set(slog.LevelError)
	} else {
		return fmt.Errorf("the debug level must be one of (debug, info, warn, error) received %s", level)
	}
	return nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
