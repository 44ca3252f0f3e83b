package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"barbershop/internal/config"
	"barbershop/internal/model"
	"barbershop/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&model.User{},
		&model.Client{},
		&model.Service{},
		&model.Appointment{},
		&model.CashClosing{},
		&model.CashEntry{},
		&model.OutboxMessage{},
	)
	require.NoError(t, err)

	cfg := &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{
				ClosingClosed:        "test.closing.closed",
				AppointmentCompleted: "test.appointment.completed",
			},
		},
		Business: config.BusinessConfig{
			NoShowGraceMinutes:    60,
			DashboardCacheSeconds: 60,
			MaxRetryCount:         3,
		},
	}

	return SetupRouter(db, nil, cfg), db
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, *envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, &env
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCloseTodayFlow(t *testing.T) {
	r, _ := setupTestRouter(t)

	// 先进两笔流水
	w, env := doJSON(t, r, http.MethodPost, "/api/v1/cash-entries", gin.H{
		"kind":        "INFLOW",
		"description": "剪发收款",
		"amount":      "50.00",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, response.CodeSuccess, env.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/cash-entries", gin.H{
		"kind":        "OUTFLOW",
		"description": "购买耗材",
		"amount":      "12.50",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 日结
	w, env = doJSON(t, r, http.MethodGet, "/api/v1/closings/today", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, response.CodeSuccess, env.Code)

	var result struct {
		Closing struct {
			ID           int64  `json:"id"`
			TotalInflow  string `json:"total_inflow"`
			TotalOutflow string `json:"total_outflow"`
			NetBalance   string `json:"net_balance"`
		} `json:"closing"`
		EntryCounts struct {
			Total int `json:"total"`
		} `json:"entry_counts"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "50", result.Closing.TotalInflow)
	assert.Equal(t, "12.5", result.Closing.TotalOutflow)
	assert.Equal(t, "37.5", result.Closing.NetBalance)
	assert.Equal(t, 2, result.EntryCounts.Total)

	// 有流水关联时删除被拒绝，返回 400 + 业务码
	w, env = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/closings/%d", result.Closing.ID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeClosingHasEntries, env.Code)

	// 认领后的流水也不允许删除
	w, env = doJSON(t, r, http.MethodDelete, "/api/v1/cash-entries/1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeEntryClaimed, env.Code)
}

func TestCloseDay_InvalidDate(t *testing.T) {
	r, _ := setupTestRouter(t)

	w, env := doJSON(t, r, http.MethodPost, "/api/v1/closings/close", gin.H{
		"date": "05/01/2024",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeInvalidDate, env.Code)
}

func TestGetClosing_NotFound(t *testing.T) {
	r, _ := setupTestRouter(t)

	w, _ := doJSON(t, r, http.MethodGet, "/api/v1/closings/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClientCRUD(t *testing.T) {
	r, _ := setupTestRouter(t)

	w, env := doJSON(t, r, http.MethodPost, "/api/v1/clients", gin.H{
		"name":  "张三",
		"phone": "13800000001",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var client model.Client
	require.NoError(t, json.Unmarshal(env.Data, &client))
	assert.Equal(t, "张三", client.Name)

	w, _ = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/clients/%d", client.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 电话缺失时参数校验失败
	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/clients", gin.H{"name": "李四"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
