package geocode

import (
	"context"
	"sync"
	"time"
)

// 防抖参数
const (
	debounceDelay  = 300 * time.Millisecond
	minQueryLength = 3
)

// Result 一次补全查询的结果
type Result struct {
	Query       string
	Suggestions []Suggestion
	Err         error
}

// Suggester 防抖地址补全器
//
// 包装 Client.Suggest：连续输入只触发最后一次查询，且丢弃
// 乱序返回的过期响应。每次 Query 递增代数号，响应回来时代数
// 不匹配即静默丢弃，保证 Results 通道上的结果单调对应最新输入。
type Suggester struct {
	client *Client

	mu         sync.Mutex
	generation uint64
	timer      *time.Timer
	cancel     context.CancelFunc

	results chan Result
}

// NewSuggester 创建防抖补全器
func NewSuggester(client *Client) *Suggester {
	return &Suggester{
		client:  client,
		results: make(chan Result, 8),
	}
}

// Results 查询结果通道
func (s *Suggester) Results() <-chan Result { return s.results }

// Query 提交一次输入
//
// 少于 3 个字符的输入会取消挂起的查询并直接清空结果。
// 达到长度门槛后启动 300ms 防抖定时器，期间的新输入会重置
// 定时器并作废前一次的飞行中请求。
func (s *Suggester) Query(ctx context.Context, query string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	gen := s.generation

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	if len(query) < minQueryLength {
		s.deliver(gen, Result{Query: query, Suggestions: []Suggestion{}})
		return
	}

	s.timer = time.AfterFunc(debounceDelay, func() {
		reqCtx, cancel := context.WithCancel(ctx)

		s.mu.Lock()
		if gen != s.generation {
			s.mu.Unlock()
			cancel()
			return
		}
		s.cancel = cancel
		s.mu.Unlock()

		suggestions, err := s.client.Suggest(reqCtx, query)
		cancel()
		s.deliverLocked(gen, Result{Query: query, Suggestions: suggestions, Err: err})
	})
}

// Stop 取消挂起的查询与定时器
func (s *Suggester) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// deliver 投递结果，代数过期则丢弃（调用方已持锁）
func (s *Suggester) deliver(gen uint64, r Result) {
	if gen != s.generation {
		return
	}
	select {
	case s.results <- r:
	default:
		// 消费方滞后时丢弃最旧的结果腾出位置
		select {
		case <-s.results:
		default:
		}
		s.results <- r
	}
}

// deliverLocked 加锁后投递
func (s *Suggester) deliverLocked(gen uint64, r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliver(gen, r)
}
