// Package config abstracts runtime configuration lookup.
package config

import (
	"io"
	"time"
)

// Config retrieves typed configuration values by dotted key.
//
// Implementations return the type's zero value when a key is missing or
// cannot be converted.
type Config interface {
	io.Closer

	// GetString retrieves the value for key as a string.
	GetString(key string) string

	// GetBool retrieves the value for key as a bool.
	GetBool(key string) bool

	// GetInt retrieves the value for key as an int.
	GetInt(key string) int

	// GetInt32 retrieves the value for key as an int32.
	GetInt32(key string) int32

	// GetInt64 retrieves the value for key as an int64.
	GetInt64(key string) int64

	// GetUint16 retrieves the value for key as a uint16.
	GetUint16(key string) uint16

	// GetFloat64 retrieves the value for key as a float64.
	GetFloat64(key string) float64

	// GetSecond retrieves the value for key as a duration in seconds.
	GetSecond(key string) time.Duration

	// GetMinute retrieves the value for key as a duration in minutes.
	GetMinute(key string) time.Duration

	// GetHour retrieves the value for key as a duration in hours.
	GetHour(key string) time.Duration

	// GetBinary retrieves the value for key decoded from base64.
	GetBinary(key string) []byte

	// GetArray retrieves the value for key split on commas.
	GetArray(key string) []string

	// GetMap retrieves the value for key parsed from "k1:v1,k2:v2" pairs.
	GetMap(key string) map[string]string
}
