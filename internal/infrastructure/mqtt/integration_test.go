//go:build integration

package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/price-collector/internal/infrastructure/config"
)

// Integration tests against a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS:         1,
		TopicPrefix: "pricecollector-it",
		Reconnect: config.MQTTReconnectConfig{
			MaxDelay: 5,
		},
	}
}

// readRetained subscribes with a plain paho client and returns the retained
// payload on topic.
func readRetained(t *testing.T, topic string) []byte {
	t.Helper()

	opts := pahomqtt.NewClientOptions().AddBroker("tcp://127.0.0.1:1883").SetClientID("pricecollector-it-reader")
	reader := pahomqtt.NewClient(opts)
	if token := reader.Connect(); !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("reader connect failed: %v", token.Error())
	}
	defer reader.Disconnect(100)

	got := make(chan []byte, 1)
	reader.Subscribe(topic, 1, func(_ pahomqtt.Client, m pahomqtt.Message) {
		select {
		case got <- m.Payload():
		default:
		}
	})

	select {
	case p := <-got:
		return p
	case <-time.After(5 * time.Second):
		t.Fatalf("no retained message on %s", topic)
		return nil
	}
}

func TestIntegration_PublishRetained(t *testing.T) {
	client, err := Connect(integrationConfig("pricecollector-it-pub"), nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	doc := []byte(`{"date":"2024-01-02T00:00:00Z","points":[{"hour":0,"price":0.1}],"written":1,"failed":0}`)
	topic := client.Topics().PricesTomorrow()
	if err := client.PublishRetained(topic, doc); err != nil {
		t.Fatalf("PublishRetained() error = %v", err)
	}

	if got := readRetained(t, topic); string(got) != string(doc) {
		t.Errorf("retained payload = %s, want %s", got, doc)
	}
}

func TestIntegration_OnlineStatus(t *testing.T) {
	client, err := Connect(integrationConfig("pricecollector-it-status"), nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	// The online status is published asynchronously from the connect handler.
	time.Sleep(200 * time.Millisecond)

	var msg StatusMessage
	if err := json.Unmarshal(readRetained(t, client.Topics().SystemStatus()), &msg); err != nil {
		t.Fatalf("status payload is not JSON: %v", err)
	}
	if msg.Status != StatusOnline {
		t.Errorf("status = %q, want %q", msg.Status, StatusOnline)
	}
}
