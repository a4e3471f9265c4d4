package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/flowcard/flowcard/util"
)

// MQCoupling subscribes to a request topic and publishes each
// response to the response topic.
type MQCoupling struct {
	Service *Service

	Broker   string
	ID       string
	ReqTopic string
	ResTopic string

	client mqtt.Client
}

func (m *MQCoupling) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(m.Broker)
	opts.SetClientID(m.ID)
	opts.SetKeepAlive(10 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.AutoReconnect = true

	m.client = mqtt.NewClient(opts)
	if t := m.client.Connect(); t.Wait() && t.Error() != nil {
		return fmt.Errorf("MQTT connect to %s: %s", m.Broker, t.Error())
	}

	handler := func(client mqtt.Client, msg mqtt.Message) {
		util.Logf("MQCoupling request on %s", msg.Topic())

		res := m.Service.Handle(ctx, msg.Payload())
		js, err := json.Marshal(res)
		if err != nil {
			log.Printf("MQCoupling marshal error %v on %#v", err, res)
			return
		}
		if t := m.client.Publish(m.ResTopic, 0, false, js); t.Wait() && t.Error() != nil {
			log.Printf("MQCoupling publish error %v", t.Error())
		}
	}

	if t := m.client.Subscribe(m.ReqTopic, 0, handler); t.Wait() && t.Error() != nil {
		return fmt.Errorf("MQTT subscribe to %s: %s", m.ReqTopic, t.Error())
	}

	log.Printf("MQCoupling up: %s -> %s", m.ReqTopic, m.ResTopic)
	return nil
}

func (m *MQCoupling) Stop() {
	if m.client != nil {
		m.client.Disconnect(100)
	}
}
