// Package feed держит единственное живое соединение с бэкендом и буфер последних событий.
package feed

import (
	"context"
	"sync"
)

// FrameHandler получает сырые кадры живого канала и ошибки соединения.
type FrameHandler interface {
	HandleFrame(frame []byte)
	HandleError(err error)
}

// EventChannel: источник кадров. Подписчик получает функцию отписки,
// сам канал создаётся снаружи и внедряется, а не строится по месту.
type EventChannel interface {
	Subscribe(h FrameHandler) (unsubscribe func())
}

// Source: канал, которым управляет main: запускается один раз и закрывается при остановке.
type Source interface {
	EventChannel
	Run(ctx context.Context) error
	Close() error
	Connected() bool
}

// dispatcher раздаёт кадры подписчикам в порядке поступления.
type dispatcher struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]FrameHandler
}

func (d *dispatcher) Subscribe(h FrameHandler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.subs == nil {
		d.subs = make(map[int]FrameHandler)
	}
	id := d.nextID
	d.nextID++
	d.subs[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subs, id)
			d.mu.Unlock()
		})
	}
}

func (d *dispatcher) emit(frame []byte) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, h := range d.subs {
		h.HandleFrame(frame)
	}
}

func (d *dispatcher) fail(err error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, h := range d.subs {
		h.HandleError(err)
	}
}

func (d *dispatcher) count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}

// MemoryChannel: детерминированный канал без сети. Кадры доставляются синхронно.
type MemoryChannel struct {
	dispatcher
}

func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{}
}

// Publish доставляет кадр всем подписчикам.
func (c *MemoryChannel) Publish(frame []byte) {
	c.emit(frame)
}

// Fail имитирует ошибку соединения.
func (c *MemoryChannel) Fail(err error) {
	c.fail(err)
}

// Subscribers: число активных подписок.
func (c *MemoryChannel) Subscribers() int {
	return c.count()
}
