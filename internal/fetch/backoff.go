package fetch

import "time"

// Backoff 描述重试节奏：总尝试次数为 len(Delays)+1，第 i 次失败后等待 Delays[i]。
type Backoff struct {
	Delays []time.Duration
}

// DefaultBackoff 共 3 次尝试，间隔 1s、2s。
func DefaultBackoff() Backoff {
	return ExponentialBackoff(3, time.Second)
}

// ExponentialBackoff 生成 attempts 次尝试、首个间隔 initial、逐次翻倍的策略。
func ExponentialBackoff(attempts int, initial time.Duration) Backoff {
	if attempts < 1 {
		attempts = 1
	}
	delays := make([]time.Duration, attempts-1)
	wait := initial
	for i := range delays {
		delays[i] = wait
		wait *= 2
	}
	return Backoff{Delays: delays}
}

// NoDelay 返回 attempts 次尝试且不等待的策略，用于测试。
func NoDelay(attempts int) Backoff {
	if attempts < 1 {
		attempts = 1
	}
	return Backoff{Delays: make([]time.Duration, attempts-1)}
}

// Attempts 返回总尝试次数。
func (b Backoff) Attempts() int {
	return len(b.Delays) + 1
}
