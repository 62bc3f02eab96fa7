package clickhouse

import (
	"strings"
	"testing"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
)

func TestOptions(t *testing.T) {
	cfg := ClientConfig{
		Host:         "ch",
		Port:         9000,
		Database:     "scanner",
		User:         "default",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  30 * time.Second,
		MaxExecTime:  time.Minute,
		AsyncInsert:  true,
		WaitForAsync: true,
		MaxOpenConns: 10,
	}
	o := options(cfg)
	assert.Equal(t, []string{"ch:9000"}, o.Addr)
	assert.Equal(t, ch.Native, o.Protocol)
	assert.Equal(t, "scanner", o.Auth.Database)
	assert.Equal(t, "default", o.Auth.Username)
	assert.Equal(t, ch.Settings{"max_execution_time": 60, "async_insert": 1, "wait_for_async_insert": 1}, o.Settings)
	assert.Equal(t, 30*time.Second, o.ReadTimeout)
	assert.Equal(t, 10, o.MaxOpenConns)

	o = options(ClientConfig{Host: "ch", Port: 8123, UseHTTP: true, AsyncInsert: false, WaitForAsync: true})
	assert.Equal(t, ch.HTTP, o.Protocol)
	assert.Empty(t, o.Settings)
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient(WithAddr("", 9000))
	assert.ErrorContains(t, err, "host is required")
}

func TestScannerSchemaTargetsDatabase(t *testing.T) {
	stmts := ScannerSchema("scan_test")
	assert.Len(t, stmts, 3)
	assert.Equal(t, "CREATE DATABASE IF NOT EXISTS scan_test", stmts[0])
	for _, s := range stmts[1:] {
		assert.True(t, strings.Contains(s, "scan_test."), s)
	}
}
