package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// RobotPosition is the payload published for every step
type RobotPosition struct {
	Episode   int     `json:"episode"`
	Step      int     `json:"step"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Heading   float64 `json:"heading"` // degrees, 0 = east, 90 = north
	Timestamp int64   `json:"timestamp"`
}

// SimilarityMessage is the payload published when an experiment finishes
type SimilarityMessage struct {
	Pairs     []SimilarityPair  `json:"pairs"`
	Summary   SimilaritySummary `json:"summary"`
	Timestamp int64             `json:"timestamp"`
}

// Publisher publishes robot positions and similarity scores to MQTT.
// It implements StepObserver.
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	positions     map[int]*RobotPosition
	mu            sync.RWMutex
}

// NewPublisher creates a publisher. prefix falls back to MQTT_PUBLISH_PREFIX
// and then to "gridmesh". If client is nil, publishing fails with an error
// but positions are still tracked.
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if env := os.Getenv("MQTT_PUBLISH_PREFIX"); env != "" {
		prefix = env
	}
	if prefix == "" {
		prefix = "gridmesh"
	}

	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           0,    // fire and forget
		retain:        true, // latest position per episode
		positions:     make(map[int]*RobotPosition),
	}
}

// PositionTopic returns the topic for an episode's robot position
func (p *Publisher) PositionTopic(episode int) string {
	return fmt.Sprintf("%s/%d/position", p.publishPrefix, episode)
}

// SimilarityTopic returns the topic for the final similarity scores
func (p *Publisher) SimilarityTopic() string {
	return p.publishPrefix + "/similarity"
}

// OnStep records the step and publishes it, logging failures
func (p *Publisher) OnStep(ev StepEvent) {
	if err := p.PublishStep(ev); err != nil && ev.Step == 1 {
		log.Printf("Error publishing position for episode %d: %v", ev.Episode, err)
	}
}

// PublishStep records the robot position of a step and publishes it
func (p *Publisher) PublishStep(ev StepEvent) error {
	pos := &RobotPosition{
		Episode:   ev.Episode,
		Step:      ev.Step,
		X:         ev.Observation.X,
		Y:         ev.Observation.Y,
		Timestamp: time.Now().Unix(),
	}

	p.mu.Lock()
	if prev, ok := p.positions[ev.Episode]; ok {
		pos.Heading = prev.Heading
		h, err := Heading(NewTrajectory(Point{X: prev.X, Y: prev.Y}, Point{X: pos.X, Y: pos.Y}))
		if err == nil {
			pos.Heading = h
		} else if !errors.Is(err, ErrZeroLengthVector) {
			p.mu.Unlock()
			return err
		}
	}
	p.positions[ev.Episode] = pos
	p.mu.Unlock()

	return p.publish(p.PositionTopic(ev.Episode), pos)
}

// PublishSimilarity publishes the pairwise scores of a finished experiment
func (p *Publisher) PublishSimilarity(result *ExperimentResult) error {
	msg := SimilarityMessage{
		Pairs:     result.Similarity,
		Summary:   result.Summary,
		Timestamp: time.Now().Unix(),
	}
	if err := p.publish(p.SimilarityTopic(), msg); err != nil {
		return err
	}
	log.Printf("Published %d similarity scores to %s", len(msg.Pairs), p.SimilarityTopic())
	return nil
}

func (p *Publisher) publish(topic string, v any) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling payload for %s: %w", topic, err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// GetPosition returns the last known position for an episode
func (p *Publisher) GetPosition(episode int) (*RobotPosition, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pos, ok := p.positions[episode]
	if !ok {
		return nil, false
	}
	posCopy := *pos
	return &posCopy, true
}

// GetAllPositions returns copies of all known positions keyed by episode
func (p *Publisher) GetAllPositions() map[int]*RobotPosition {
	p.mu.RLock()
	defer p.mu.RUnlock()

	positions := make(map[int]*RobotPosition, len(p.positions))
	for id, pos := range p.positions {
		posCopy := *pos
		positions[id] = &posCopy
	}
	return positions
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the broker
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}
