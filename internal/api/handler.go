// Package api 命令下发 HTTP 接口
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/collar-tx/internal/api/middleware"
	"github.com/taoyao-code/collar-tx/internal/app"
	cfgpkg "github.com/taoyao-code/collar-tx/internal/config"
	"github.com/taoyao-code/collar-tx/internal/health"
	"github.com/taoyao-code/collar-tx/internal/metrics"
	"github.com/taoyao-code/collar-tx/internal/protocol/collar"
	"github.com/taoyao-code/collar-tx/internal/transmitter"
)

// 业务错误码
const (
	CodeOK            = 0
	CodeInvalidParams = 1001
	CodeBusy          = 1002
	CodeLineDown      = 1003
	CodeTiming        = 1004
	CodeHardware      = 1005
)

// StandardResponse 标准响应格式
type StandardResponse struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id"`
	Timestamp int64       `json:"timestamp"`
}

// CommandRequest 命令请求；缺省字段取配置中的默认命令
type CommandRequest struct {
	TransmitterID *int   `json:"transmitter_id"`
	Channel       *int   `json:"channel"` // 1~3
	Mode          string `json:"mode"`    // shock | vibrate | beep
	Strength      *int   `json:"strength"`
	Repeat        *int   `json:"repeat"`
}

// CommandResult 命令响应数据
type CommandResult struct {
	app.Result
	TransmitterID uint16 `json:"transmitter_id"`
	Channel       int    `json:"channel"`
	Mode          string `json:"mode"`
	Strength      uint   `json:"strength"`
	Repeat        uint   `json:"repeat"`
	Checksum      string `json:"checksum"`
	Waveform      string `json:"waveform"`
}

// CommandRunner 发送流程（*app.Runner）
type CommandRunner interface {
	Run(ctx context.Context, p collar.CommandParams, overrideUsec uint32) (app.Result, error)
	Timing() *app.TimingUnit
}

// CommandHandler 命令接口处理器
type CommandHandler struct {
	runner       CommandRunner
	readiness    *health.Readiness
	defaults     cfgpkg.CommandConfig
	maxRepeat    int
	overrideUsec uint32
	metrics      *metrics.AppMetrics
	logger       *zap.Logger

	// 输出线同一时刻只允许一次发送
	busy     sync.Mutex
	draining atomic.Bool
}

// NewCommandHandler 创建命令接口处理器；appm 可为 nil
// maxRepeat 限制单次请求的重复次数，0 表示不限
func NewCommandHandler(
	runner CommandRunner,
	readiness *health.Readiness,
	defaults cfgpkg.CommandConfig,
	maxRepeat int,
	overrideUsec uint32,
	appm *metrics.AppMetrics,
	logger *zap.Logger,
) *CommandHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandHandler{
		runner:       runner,
		readiness:    readiness,
		defaults:     defaults,
		maxRepeat:    maxRepeat,
		overrideUsec: overrideUsec,
		metrics:      appm,
		logger:       logger,
	}
}

// SendCommand 下发一条命令
// POST /api/v1/commands
func (h *CommandHandler) SendCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, CodeInvalidParams, "invalid request: "+err.Error())
		return
	}

	p, err := h.buildCommand(req)
	if err != nil {
		h.fail(c, http.StatusBadRequest, CodeInvalidParams, err.Error())
		return
	}

	if h.maxRepeat > 0 && p.Repeat > uint(h.maxRepeat) {
		h.fail(c, http.StatusBadRequest, CodeInvalidParams,
			fmt.Sprintf("%v: %d exceeds limit %d", collar.ErrInvalidRepeat, p.Repeat, h.maxRepeat))
		return
	}

	if h.draining.Load() || (h.readiness != nil && !h.readiness.LineReady()) {
		h.fail(c, http.StatusServiceUnavailable, CodeLineDown, "output line unavailable")
		return
	}

	if !h.busy.TryLock() {
		h.fail(c, http.StatusConflict, CodeBusy, "transmission in progress")
		return
	}
	defer h.busy.Unlock()
	if h.draining.Load() {
		h.fail(c, http.StatusServiceUnavailable, CodeLineDown, "shutting down")
		return
	}

	// 客户端断开或服务关闭即取消：正在发送的帧仍会完整发出
	res, err := h.runner.Run(c.Request.Context(), p, h.overrideUsec)
	if err != nil {
		if errors.Is(err, transmitter.ErrOutputLine) {
			if h.readiness != nil {
				h.readiness.SetLineReady(false)
			}
			h.logger.Error("output line failed, refusing further commands", zap.Error(err))
			h.fail(c, http.StatusInternalServerError, CodeHardware, err.Error())
			return
		}
		h.fail(c, http.StatusServiceUnavailable, CodeTiming, err.Error())
		return
	}

	w := collar.Encode(p)
	h.ok(c, CommandResult{
		Result:        res,
		TransmitterID: p.TransmitterID,
		Channel:       p.Channel.Number(),
		Mode:          p.Mode.String(),
		Strength:      p.Strength,
		Repeat:        p.Repeat,
		Checksum:      "0x" + strconv.FormatUint(uint64(collar.Checksum(p)), 16),
		Waveform:      w.Hex(),
	})
}

// Drain 拒绝新命令并等待进行中的发送结束
// 返回后输出线不再被本处理器使用，可以安全释放
func (h *CommandHandler) Drain() {
	h.draining.Store(true)
	h.busy.Lock()
	defer h.busy.Unlock()
}

// GetTiming 查询当前相位时长
// GET /api/v1/timing
func (h *CommandHandler) GetTiming(c *gin.Context) {
	usec, src, err := h.runner.Timing().Get()
	if err != nil {
		h.fail(c, http.StatusServiceUnavailable, CodeTiming, err.Error())
		return
	}
	h.ok(c, gin.H{
		"unit_usec":  usec,
		"source":     src,
		"frame_usec": uint64(usec) * collar.FrameQuarterPhases,
	})
}

func (h *CommandHandler) buildCommand(req CommandRequest) (collar.CommandParams, error) {
	d := h.defaults
	id, ch, strength, repeat := d.TransmitterID, d.Channel, d.Strength, d.Repeat
	modeName := d.Mode
	if req.TransmitterID != nil {
		id = *req.TransmitterID
	}
	if req.Channel != nil {
		ch = *req.Channel
	}
	if req.Mode != "" {
		modeName = req.Mode
	}
	if req.Strength != nil {
		strength = *req.Strength
	}
	if req.Repeat != nil {
		repeat = *req.Repeat
	}
	mode, err := collar.ParseMode(modeName)
	if err != nil {
		return collar.CommandParams{}, err
	}
	return collar.NewCommand(id, ch, mode, strength, repeat)
}

func (h *CommandHandler) ok(c *gin.Context, data interface{}) {
	h.count(http.StatusOK)
	c.JSON(http.StatusOK, StandardResponse{
		Code:      CodeOK,
		Message:   "success",
		Data:      data,
		RequestID: c.GetString(middleware.RequestIDKey),
		Timestamp: time.Now().Unix(),
	})
}

func (h *CommandHandler) fail(c *gin.Context, status, code int, msg string) {
	h.count(status)
	c.JSON(status, StandardResponse{
		Code:      code,
		Message:   msg,
		RequestID: c.GetString(middleware.RequestIDKey),
		Timestamp: time.Now().Unix(),
	})
}

func (h *CommandHandler) count(status int) {
	if h.metrics != nil {
		h.metrics.APICommandsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	}
}
