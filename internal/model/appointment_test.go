package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	// 正常推进
	assert.True(t, CanTransitionTo(AppointmentStatusScheduled, AppointmentStatusConfirmed))
	assert.True(t, CanTransitionTo(AppointmentStatusScheduled, AppointmentStatusCompleted))
	assert.True(t, CanTransitionTo(AppointmentStatusScheduled, AppointmentStatusNoShow))
	assert.True(t, CanTransitionTo(AppointmentStatusConfirmed, AppointmentStatusCancelled))

	// 终态不允许再流转
	assert.False(t, CanTransitionTo(AppointmentStatusCompleted, AppointmentStatusCancelled))
	assert.False(t, CanTransitionTo(AppointmentStatusCancelled, AppointmentStatusConfirmed))
	assert.False(t, CanTransitionTo(AppointmentStatusNoShow, AppointmentStatusScheduled))

	// 不能原地跳转或跳过校验
	assert.False(t, CanTransitionTo(AppointmentStatusScheduled, AppointmentStatusScheduled))
	assert.False(t, CanTransitionTo("UNKNOWN", AppointmentStatusConfirmed))
}
