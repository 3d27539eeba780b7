package models

import (
	"time"
)

// Reading 一条水质传感器读数（入库后不可变）
type Reading struct {
	ID        string    `json:"id"`
	User      string    `json:"user,omitempty"` // 提交设备/用户标识（可选）
	PH        float64   `json:"ph"`
	Temp      float64   `json:"temp"` // °C
	Turb      float64   `json:"turb"` // NTU
	TDS       float64   `json:"tds"`  // ppm
	DO        float64   `json:"do"`   // mg/L
	Alert     bool      `json:"alert"`
	Timestamp time.Time `json:"timestamp"`
}

// Channel 外部通道标识（虚拟引脚 v1-v5），固定映射到 Reading 的五个数值字段
type Channel struct {
	Field  string // JSON 字段名（如 "ph"）
	Column string // sensor_readings 表的列名（"do" 是 SQL 保留字，列名用 dissolved_oxygen）
}

// pinChannels v1-v5 → 字段/列的固定双射
var pinChannels = map[string]Channel{
	"v1": {Field: "ph", Column: "ph"},
	"v2": {Field: "temp", Column: "temp"},
	"v3": {Field: "turb", Column: "turb"},
	"v4": {Field: "tds", Column: "tds"},
	"v5": {Field: "do", Column: "dissolved_oxygen"},
}

// ChannelForPin 根据 pin 查找通道映射
func ChannelForPin(pin string) (Channel, bool) {
	ch, ok := pinChannels[pin]
	return ch, ok
}

// FieldValue 返回通道字段对应的读数值
func (r *Reading) FieldValue(field string) float64 {
	switch field {
	case "ph":
		return r.PH
	case "temp":
		return r.Temp
	case "turb":
		return r.Turb
	case "tds":
		return r.TDS
	case "do":
		return r.DO
	}
	return 0
}
