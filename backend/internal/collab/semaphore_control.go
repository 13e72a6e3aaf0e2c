package collab

import (
	"context"
	"errors"
)

const DefaultMaxSemaphore = 100

var (
	ErrAcquireTimeout = errors.New("semaphore acquire timed out")
	ErrReleaseNotHeld = errors.New("semaphore released without acquire")
	ErrSemaphoreBusy  = errors.New("semaphore busy")
)

// SemaphoreControl 用带缓冲 channel 实现的计数信号量，
// 限制同时进行的 Kafka 发送 / WebSocket 提交数量。
type SemaphoreControl struct {
	ch chan struct{}
}

// NewSemaphoreControl 创建容量为 capacity 的信号量；capacity <= 0 时用默认值。
func NewSemaphoreControl(capacity int) *SemaphoreControl {
	if capacity <= 0 {
		capacity = DefaultMaxSemaphore
	}
	return &SemaphoreControl{ch: make(chan struct{}, capacity)}
}

// Acquire 阻塞获取一个名额，ctx 超时/取消时放弃。
func (s *SemaphoreControl) Acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ErrAcquireTimeout
	}
}

// TryAcquire 非阻塞获取，拿不到立刻失败。
func (s *SemaphoreControl) TryAcquire() error {
	select {
	case s.ch <- struct{}{}:
		return nil
	default:
		return ErrSemaphoreBusy
	}
}

func (s *SemaphoreControl) Release() error {
	select {
	case <-s.ch:
		return nil
	default:
		return ErrReleaseNotHeld
	}
}

// InUse 返回当前已占用的名额数（仅用于日志/调试）。
func (s *SemaphoreControl) InUse() int {
	return len(s.ch)
}
