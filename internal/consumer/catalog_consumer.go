package consumer

import (
	"context"
	"encoding/json"
	"log"

	"github.com/coworkly/coworking-core/internal/models"
	"github.com/coworkly/coworking-core/internal/repository"
	amqp "github.com/rabbitmq/amqp091-go"
)

// CatalogConsumer keeps the local copies of the space, tariff, and member
// catalogs in sync with the (out-of-scope) catalog services. The booking
// engine only ever reads these local rows; member balance is never written
// from here.
type CatalogConsumer struct {
	spaces  repository.SpaceRepository
	tariffs repository.TariffRepository
	members repository.MemberRepository
}

func NewCatalogConsumer(spaces repository.SpaceRepository, tariffs repository.TariffRepository, members repository.MemberRepository) *CatalogConsumer {
	return &CatalogConsumer{spaces: spaces, tariffs: tariffs, members: members}
}

// Start listens for catalog messages and upserts them into the local DB.
func (cc *CatalogConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			cc.handleMessage(msg)
		}
		log.Println("[CatalogConsumer] channel closed, stopping consumer")
	}()
}

func (cc *CatalogConsumer) handleMessage(msg amqp.Delivery) {
	ctx := context.Background()

	var err error
	switch msg.RoutingKey {
	case "catalog.space":
		err = cc.syncSpace(ctx, msg.Body)
	case "catalog.tariff":
		err = cc.syncTariff(ctx, msg.Body)
	case "catalog.member":
		err = cc.syncMember(ctx, msg.Body)
	default:
		log.Printf("[CatalogConsumer] ignoring routing key %s", msg.RoutingKey)
		msg.Ack(false)
		return
	}

	if err != nil {
		log.Printf("[CatalogConsumer] failed to sync %s: %v", msg.RoutingKey, err)
		msg.Nack(false, true) // requeue
		return
	}
	msg.Ack(false)
}

func (cc *CatalogConsumer) syncSpace(ctx context.Context, body []byte) error {
	var space models.Space
	if err := json.Unmarshal(body, &space); err != nil {
		return cc.drop(err)
	}
	return cc.spaces.Upsert(ctx, &space)
}

func (cc *CatalogConsumer) syncTariff(ctx context.Context, body []byte) error {
	var tariff models.Tariff
	if err := json.Unmarshal(body, &tariff); err != nil {
		return cc.drop(err)
	}
	// Reject unknown enum spellings instead of persisting garbage.
	parsed, err := models.ParseTariffType(string(tariff.Type))
	if err != nil {
		return cc.drop(err)
	}
	tariff.Type = parsed
	return cc.tariffs.Upsert(ctx, &tariff)
}

func (cc *CatalogConsumer) syncMember(ctx context.Context, body []byte) error {
	var member models.Member
	if err := json.Unmarshal(body, &member); err != nil {
		return cc.drop(err)
	}
	return cc.members.UpsertDirectory(ctx, &member)
}

// drop logs and swallows a malformed payload: requeueing it would loop forever.
func (cc *CatalogConsumer) drop(err error) error {
	log.Printf("[CatalogConsumer] dropping malformed payload: %v", err)
	return nil
}
