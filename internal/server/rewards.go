package server

import (
	"net/http"
	"strconv"
	"time"

	rewarddomain "github.com/checkoutplus/cashback/internal/reward/domain"
	"github.com/checkoutplus/cashback/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type rewardItem struct {
	ID            string     `json:"id"`
	OrderID       string     `json:"order_id"`
	OrderName     string     `json:"order_name"`
	CustomerEmail string     `json:"customer_email"`
	RewardAmount  string     `json:"reward_amount"`
	ShopDomain    string     `json:"shop_domain"`
	CreatedAt     time.Time  `json:"created_at"`
	DispatchAt    time.Time  `json:"dispatch_at"`
	Sent          bool       `json:"sent"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	IssuedCode    *string    `json:"issued_code,omitempty"`
	RetryCount    int        `json:"retry_count"`
	LastError     *string    `json:"last_error,omitempty"`
}

type listRewardsResponse struct {
	Rewards  []rewardItem         `json:"rewards"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

// HandleListRewards serves the operational view over the reward queue,
// filterable by shop and sent state, cursor-paginated in dispatch order.
func (s *Server) HandleListRewards(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "invalid page size"))
		return
	}

	filter := rewarddomain.ListRewardFilter{
		ShopDomain: c.Query("shop"),
	}
	if raw := c.Query("sent"); raw != "" {
		sent, err := strconv.ParseBool(raw)
		if err != nil {
			AbortWithError(c, newValidationError("sent", "invalid_sent", "sent must be true or false"))
			return
		}
		filter.Sent = &sent
	}

	pageSize := page.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	rewards, err := s.rewardRepo.List(c.Request.Context(), s.db, filter, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	pageInfo := pagination.BuildCursorPageInfo(rewards, pageSize, func(r *rewarddomain.PendingReward) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:         r.ID.String(),
			DispatchAt: r.DispatchAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	if len(rewards) > pageSize {
		rewards = rewards[:pageSize]
	}

	items := make([]rewardItem, 0, len(rewards))
	for _, r := range rewards {
		items = append(items, rewardItem{
			ID:            r.ID.String(),
			OrderID:       r.OrderID,
			OrderName:     r.OrderName,
			CustomerEmail: r.CustomerEmail,
			RewardAmount:  r.RewardAmount.StringFixed(2),
			ShopDomain:    r.ShopDomain,
			CreatedAt:     r.CreatedAt,
			DispatchAt:    r.DispatchAt,
			Sent:          r.Sent,
			SentAt:        r.SentAt,
			IssuedCode:    r.IssuedCode,
			RetryCount:    r.RetryCount,
			LastError:     r.LastError,
		})
	}

	c.JSON(http.StatusOK, listRewardsResponse{
		Rewards:  items,
		PageInfo: pageInfo,
	})
}
