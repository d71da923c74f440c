package configstore

import (
	"strings"
	"testing"
)

func TestValidateServer(t *testing.T) {
	tests := []struct {
		name    string
		server  string
		wantErr bool
	}{
		{"ip address", "192.168.1.1", false},
		{"hostname", "broker.lan", false},
		{"max length", strings.Repeat("a", MaxServerLen), false},
		{"too long", strings.Repeat("a", MaxServerLen+1), true},
		{"field size", strings.Repeat("a", ServerFieldSize), true},
		{"empty", "", true},
		{"embedded space", "broker lan", true},
		{"control char", "broker\x01", true},
		{"delete char", "broker\x7f", true},
		{"invalid utf8", "broker\xff", true},
		{"zero width space", "broker\u200b.lan", true},
		{"non-breaking space", "broker\u00a0lan", true},
		{"unicode hostname", "brüker.lan", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServer(tt.server)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateServer(%q) error = %v, wantErr %v", tt.server, err, tt.wantErr)
			}
			if err != nil && !IsValidationError(err) {
				t.Errorf("ValidateServer(%q) error type = %T, want validation error", tt.server, err)
			}
		})
	}
}

func TestValidatePort(t *testing.T) {
	tests := []struct {
		port    string
		wantErr bool
	}{
		{"1883", false},
		{"1", false},
		{"65535", false},
		{"65536", true},
		{"0", true},
		{"-1", true},
		{"+1883", true},
		{"123456", true},
		{"mqtt", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.port, func(t *testing.T) {
			err := ValidatePort(tt.port)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePort(%q) error = %v, wantErr %v", tt.port, err, tt.wantErr)
			}
		})
	}
}

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		cfg  ConnectionConfig
		want string
	}{
		{Defaults(), "tcp://192.168.1.1:1883"},
		{ConnectionConfig{Server: "broker.lan", Port: "8883"}, "tcp://broker.lan:8883"},
		{ConnectionConfig{Server: "fe80::1", Port: "1883"}, "tcp://[fe80::1]:1883"},
	}

	for _, tt := range tests {
		if got := tt.cfg.BrokerURL(); got != tt.want {
			t.Errorf("BrokerURL() = %v, want %v", got, tt.want)
		}
	}
}

func TestErrorTypeString(t *testing.T) {
	tests := []struct {
		et   ErrorType
		want string
	}{
		{ErrTypeParse, "ParseFailure"},
		{ErrTypeWrite, "WriteFailure"},
		{ErrTypeValidation, "ValidationFailure"},
		{ErrorType(42), "ErrorType(42)"},
	}

	for _, tt := range tests {
		if got := tt.et.String(); got != tt.want {
			t.Errorf("ErrorType(%d).String() = %v, want %v", int(tt.et), got, tt.want)
		}
	}
}
