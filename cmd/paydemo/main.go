// paydemo runs one full card payment against a running mockbank (or, with
// the right terminal credentials, the bank's test environment).
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"acquiring-payment-sdk/config"
	"acquiring-payment-sdk/models"
	"acquiring-payment-sdk/network"
	"acquiring-payment-sdk/payment"
	"acquiring-payment-sdk/utils"
)

// demoCardSource stands in for the platform crypto provider: it encodes the
// demo card as base64 JSON instead of encrypting with the terminal key.
type demoCardSource struct {
	card models.CardData
}

func (s demoCardSource) Encode(publicKey string) (string, error) {
	if err := s.card.Validate(); err != nil {
		return "", err
	}
	raw, err := json.Marshal(map[string]string{
		"PAN":     s.card.Pan,
		"ExpDate": s.card.ExpDate,
		"CVV":     s.card.SecurityCode,
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

type demoListener struct {
	done chan struct{}
}

func (l demoListener) OnSuccess(paymentID int64, cardID, rebillID string) {
	log.Printf("payment %d confirmed (card %s)", paymentID, cardID)
	close(l.done)
}

func (l demoListener) OnUINeeded(challenge payment.ThreeDsChallenge) {
	log.Printf("3-D Secure challenge required: %#v", challenge)
	close(l.done)
}

func (l demoListener) OnError(err error, paymentID int64) {
	log.Printf("payment %d failed: %v", paymentID, err)
	close(l.done)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg := config.Load()
	client := network.NewClient(*cfg)

	amount := utils.Kopecks(20.00)
	orderID := uuid.NewString()
	log.Printf("paying %s RUB, order %s", utils.FormatAmount(amount), orderID)

	listener := demoListener{done: make(chan struct{})}
	proc := payment.NewProcess(client, listener)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	err := proc.Start(ctx, payment.PaymentOptions{
		OrderID:     orderID,
		Amount:      amount,
		Description: "paydemo test purchase",
		Source: demoCardSource{card: models.CardData{
			Pan:          "4300000000000777",
			ExpDate:      "12/29",
			SecurityCode: "111",
		}},
	})
	if err != nil {
		log.Fatalf("failed to start payment: %v", err)
	}

	select {
	case <-listener.done:
	case <-ctx.Done():
		proc.Stop()
		log.Fatalf("payment timed out")
	}
}
