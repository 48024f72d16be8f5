package transport

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTT mirrors the Redis backend over MQTT topics: one topic per node
// plus a shared broadcast topic. Connect retries are left to the paho
// client; a lost frame during reconnect is just radio loss.
type MQTT struct {
	raw       mqtt.Client
	addr      Address
	broadcast string
}

type mqttFrame struct {
	From string `json:"from"`
	Data []byte `json:"data"`
}

// NewMQTT connects to the broker and claims topic prefix/name.
func NewMQTT(brokerURL, prefix, name string) (*MQTT, error) {
	if prefix == "" {
		prefix = "mesh"
	}
	o := mqtt.NewClientOptions()
	o.AddBroker(brokerURL)
	o.SetClientID(prefix + "-" + name)
	o.SetConnectRetry(true)
	o.SetConnectRetryInterval(2 * time.Second)
	o.SetAutoReconnect(true)
	raw := mqtt.NewClient(o)

	token := raw.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker %s: %w", brokerURL, token.Error())
	}
	return &MQTT{
		raw:       raw,
		addr:      Address(prefix + "/" + name),
		broadcast: prefix + "/broadcast",
	}, nil
}

func (m *MQTT) Addr() Address { return m.addr }

func (m *MQTT) Start(h Handler) error {
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		var frame mqttFrame
		if err := json.Unmarshal(msg.Payload(), &frame); err != nil {
			return
		}
		if Address(frame.From) == m.addr {
			return // our own broadcast echoed back
		}
		h(frame.Data, Address(frame.From))
	}
	for _, topic := range []string{string(m.addr), m.broadcast} {
		token := m.raw.Subscribe(topic, 0, handler)
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("failed to subscribe %s: %w", topic, token.Error())
		}
	}
	return nil
}

func (m *MQTT) publish(topic string, payload []byte) error {
	body, err := json.Marshal(mqttFrame{From: string(m.addr), Data: payload})
	if err != nil {
		return err
	}
	token := m.raw.Publish(topic, 0, false, body)
	token.Wait()
	return token.Error()
}

func (m *MQTT) SendUnicast(payload []byte, to Address) error {
	return m.publish(string(to), payload)
}

func (m *MQTT) SendMulticast(payload []byte) error {
	return m.publish(m.broadcast, payload)
}

func (m *MQTT) Close() error {
	m.raw.Disconnect(250)
	return nil
}
