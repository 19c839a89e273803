package server

import (
	"context"
	"log"
	"time"
)

const (
	// 未排期请求的过期检查间隔
	expirySweepInterval = 10 * time.Minute
	// 业务指标刷新间隔
	gaugeRefreshInterval = 1 * time.Minute
)

// StartBackground 启动后台任务，ctx 取消后退出
//
// 包含两个循环：
//   - 过期会话清理：取消超过有效期仍未排期的请求
//   - 指标刷新：将用户/会话/推荐数量同步到 Prometheus
func (h *Handler) StartBackground(ctx context.Context) {
	go h.expiryLoop(ctx)
	go h.gaugeLoop(ctx)
	go func() {
		stop := make(chan struct{})
		go h.dashboard.StartPing(stop)
		<-ctx.Done()
		close(stop)
	}()
}

func (h *Handler) expiryLoop(ctx context.Context) {
	ticker := time.NewTicker(expirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := h.store.ExpireRequestedSessions(ctx)
			if err != nil {
				log.Printf("[sweeper] ExpireRequestedSessions error: %v", err)
				continue
			}
			if count > 0 {
				h.metrics.RecordExpiredSessions(count)
				log.Printf("[sweeper] Canceled %d expired session requests", count)
			}
		}
	}
}

func (h *Handler) gaugeLoop(ctx context.Context) {
	ticker := time.NewTicker(gaugeRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.refreshGauges(ctx)
		}
	}
}

func (h *Handler) refreshGauges(ctx context.Context) {
	stats, err := h.store.AdminStats(ctx)
	if err != nil {
		log.Printf("[sweeper] AdminStats error: %v", err)
		return
	}
	for role, count := range stats.UsersByRole {
		h.metrics.SetUsersByRole(role, count)
	}
	for status, count := range stats.UsersByStatus {
		h.metrics.SetUsersByStatus(status, count)
	}
	for status, count := range stats.SessionsByStatus {
		h.metrics.SetSessionsCount(status, count)
	}
	h.metrics.SetActiveReferrals(stats.ActiveReferrals)
}
