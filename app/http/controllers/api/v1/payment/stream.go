package payment

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"homerent/app/http/middlewares"
	"homerent/pkg/logger"
	"homerent/pkg/payment/types"
	"homerent/pkg/response"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	pongWait   = pingPeriod + writeWait
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 跨域由 Cors 中间件控制，令牌通过 query 传递
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Stream 通过 websocket 推送账单状态变化
func (pc *PaymentsController) Stream(c *gin.Context) {
	if pc.hub == nil {
		response.Abort404(c)
		return
	}
	userID := middlewares.CurrentUserID(c)
	if userID == "" {
		response.Abort401(c)
		return
	}

	filter, err := pc.policy.StreamFilter(c.Request.Context(), userID, middlewares.CurrentRole(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Abort404(c, "没有可订阅的账单")
			return
		}
		response.ServerError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WarnString("Stream", "Upgrade", err.Error())
		return
	}
	defer conn.Close()

	send := make(chan types.Event, 16)
	unsubscribe := pc.hub.Subscribe(filter, func(e types.Event) {
		select {
		case send <- e:
		default:
			logger.WarnString("Stream", "Send", "client too slow, dropped "+e.PaymentID)
		}
	})
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case e := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
