package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"acquiring-payment-sdk/mockbank"
)

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		log.Printf(
			"%s %s %d %v",
			r.Method,
			r.RequestURI,
			wrapper.status,
			time.Since(start),
		)
	})
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.LUTC)

	terminalKey := os.Getenv("ACQ_TERMINAL_KEY")
	if terminalKey == "" {
		terminalKey = "TestSDK"
	}
	password := os.Getenv("ACQ_PASSWORD")
	if password == "" {
		password = "12345678"
	}
	port := os.Getenv("MOCKBANK_PORT")
	if port == "" {
		port = "8085"
	}

	bank := mockbank.New(terminalKey, password)
	bank.ThreeDsMode = os.Getenv("MOCKBANK_3DS_MODE")

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      loggingMiddleware(bank.Router()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("mockbank listening on :%s (terminal %s)", port, terminalKey)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
