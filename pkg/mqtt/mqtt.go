// Package mqtt publishes moderation events to a broker and answers
// request/response queries from other services.
package mqtt

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Defausha/warnbot/pkg/logger"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MqttRequest represents an MQTT request message
type MqttRequest struct {
	CorrelationID string      `json:"correlationId"`
	Payload       interface{} `json:"payload,omitempty"`
}

// MqttResponse represents an MQTT response message
type MqttResponse struct {
	CorrelationID string      `json:"correlationId"`
	Data          interface{} `json:"data"`
	Error         string      `json:"error,omitempty"`
}

// Options configures a communicator.
type Options struct {
	Host     string
	Port     string
	Username string
	Password string
	ClientID string
	// TopicPrefix is the first level of every topic, e.g. "warnbot".
	TopicPrefix string
}

// MqttCommunicator handles MQTT communication
type MqttCommunicator struct {
	client           mqtt.Client
	responseHandlers map[string]func(MqttResponse)
	mu               sync.RWMutex
	clientID         string
	prefix           string
}

var (
	communicator *MqttCommunicator
	once         sync.Once
)

// Init initializes the global MQTT communicator
func Init(opts Options) *MqttCommunicator {
	once.Do(func() {
		communicator = NewMqttCommunicator(opts)
	})
	return communicator
}

// Get returns the global MQTT communicator
func Get() *MqttCommunicator {
	return communicator
}

// NewMqttCommunicator connects to the broker. A failed first connection is
// logged and retried in the background.
func NewMqttCommunicator(o Options) *MqttCommunicator {
	mc := &MqttCommunicator{
		responseHandlers: make(map[string]func(MqttResponse)),
		clientID:         o.ClientID,
		prefix:           strings.Trim(o.TopicPrefix, "/"),
	}
	if mc.prefix == "" {
		mc.prefix = "warnbot"
	}

	uniqueID := fmt.Sprintf("%s_%s", o.ClientID, uuid.New().String())

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", o.Host, o.Port)).
		SetClientID(uniqueID).
		SetUsername(o.Username).
		SetPassword(o.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Success(fmt.Sprintf("Conectado al broker MQTT como %s", o.ClientID), "MQTT")
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Error(fmt.Sprintf("Conexión MQTT perdida: %v", err), "MQTT")
		})

	mc.client = mqtt.NewClient(opts)

	token := mc.client.Connect()
	if token.WaitTimeout(10*time.Second) && token.Error() != nil {
		logger.Error(fmt.Sprintf("Error de conexión MQTT: %v", token.Error()), "MQTT")
	}

	return mc
}

// Topic joins parts under the configured prefix.
func (mc *MqttCommunicator) Topic(parts ...string) string {
	return topicFor(mc.prefix, parts...)
}

func topicFor(prefix string, parts ...string) string {
	return strings.Join(append([]string{prefix}, parts...), "/")
}

// Destroy closes the MQTT connection
func (mc *MqttCommunicator) Destroy() {
	if mc.client != nil && mc.client.IsConnected() {
		mc.client.Disconnect(250)
		logger.System("Conexión MQTT cerrada exitosamente.", "MQTT")
	} else {
		logger.Warn("El cliente MQTT no estaba conectado, no se necesita cerrar.", "MQTT")
	}
}

// IsConnected returns true if connected to the broker
func (mc *MqttCommunicator) IsConnected() bool {
	return mc.client != nil && mc.client.IsConnected()
}

// Publish sends a JSON message to a full topic.
func (mc *MqttCommunicator) Publish(topic string, payload interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	token := mc.client.Publish(topic, 0, false, jsonData)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

// Request sends a request on <prefix>/request/<topic> and waits for the
// matching response. warnctl uses it to reach a running bot.
func (mc *MqttCommunicator) Request(topic string, payload interface{}, timeout time.Duration) (interface{}, error) {
	correlationID := uuid.New().String()
	requestTopic := mc.Topic("request", topic)
	responseTopic := mc.Topic("response", topic, correlationID)

	responseChan := make(chan MqttResponse, 1)
	errChan := make(chan error, 1)

	mc.mu.Lock()
	mc.responseHandlers[correlationID] = func(response MqttResponse) {
		select {
		case responseChan <- response:
		default:
		}
	}
	mc.mu.Unlock()

	defer func() {
		mc.mu.Lock()
		delete(mc.responseHandlers, correlationID)
		mc.mu.Unlock()
		mc.client.Unsubscribe(responseTopic)
	}()

	token := mc.client.Subscribe(responseTopic, 0, func(c mqtt.Client, msg mqtt.Message) {
		var response MqttResponse
		if err := json.Unmarshal(msg.Payload(), &response); err != nil {
			select {
			case errChan <- err:
			default:
			}
			return
		}

		mc.mu.RLock()
		handler, exists := mc.responseHandlers[response.CorrelationID]
		mc.mu.RUnlock()

		if exists {
			handler(response)
		}
	})

	if token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	request := MqttRequest{
		CorrelationID: correlationID,
		Payload:       payload,
	}

	if err := mc.Publish(requestTopic, request); err != nil {
		return nil, err
	}

	select {
	case response := <-responseChan:
		if response.Error != "" {
			return nil, fmt.Errorf("%s", response.Error)
		}
		return response.Data, nil
	case err := <-errChan:
		return nil, err
	case <-time.After(timeout):
		return nil, fmt.Errorf("la petición a '%s' ha expirado (timeout)", topic)
	}
}

// RequestHandler is a function type for handling MQTT requests
type RequestHandler func(payload map[string]interface{}) (interface{}, error)

// On registers a handler for <prefix>/request/<requestTopic>.
func (mc *MqttCommunicator) On(requestTopic string, callback RequestHandler) {
	topic := mc.Topic("request", requestTopic)

	token := mc.client.Subscribe(topic, 0, func(c mqtt.Client, msg mqtt.Message) {
		var request MqttRequest
		if err := json.Unmarshal(msg.Payload(), &request); err != nil {
			logger.Error(fmt.Sprintf("Error parsing MQTT request: %v", err), "MQTT")
			return
		}

		response := handleRequest(mc.prefix, msg.Topic(), request, callback)
		if err := mc.Publish(mc.Topic("response", response.topic, request.CorrelationID), response.MqttResponse); err != nil {
			logger.Error(fmt.Sprintf("Error enviando respuesta MQTT: %v", err), "MQTT")
		}
	})

	if token.Wait() && token.Error() != nil {
		logger.Error(fmt.Sprintf("Error subscribing to topic %s: %v", topic, token.Error()), "MQTT")
	}
}

type routedResponse struct {
	MqttResponse
	topic string
}

// handleRequest runs callback for a request received on receivedTopic.
func handleRequest(prefix, receivedTopic string, request MqttRequest, callback RequestHandler) routedResponse {
	actualTopic := strings.TrimPrefix(receivedTopic, topicFor(prefix, "request")+"/")

	payloadMap := make(map[string]interface{})
	if pm, ok := request.Payload.(map[string]interface{}); ok {
		payloadMap = pm
	}
	payloadMap["_topic"] = actualTopic

	out := routedResponse{topic: actualTopic}
	out.CorrelationID = request.CorrelationID

	data, err := safeCall(callback, payloadMap)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Data = data
	return out
}

func safeCall(callback RequestHandler, payload map[string]interface{}) (data interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Sprintf("Pánico en handler MQTT: %v", r), "MQTT")
			data, err = nil, fmt.Errorf("internal error")
		}
	}()
	return callback(payload)
}
