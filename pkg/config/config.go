// Package config loads the engine's configuration surface — per-session
// settings plus process-wide platform settings (§6) — via
// github.com/spf13/viper, grounded on this codebase's existing layered
// config pattern (env override + file, viper.SetDefault for
// defaults).
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// SessionType distinguishes which side of the TCP handshake a session
// plays.
type SessionType string

const (
	Acceptor  SessionType = "acceptor"
	Initiator SessionType = "initiator"
)

// Session is one [session.*] block's fully-resolved settings.
type Session struct {
	Name    string
	Role    SessionType

	BeginString  string
	SenderCompID string
	TargetCompID string
	FIXDictionary string

	AcceptPort  int
	ConnectHost string
	ConnectPort int

	ConnectTimeout       time.Duration
	HeartbeatInterval    time.Duration
	LogonInterval        time.Duration
	ReconnectInterval    time.Duration
	TestRequestThreshold float64
	SendingTimeThreshold time.Duration

	ResetSeqNumOnLogon     bool
	RelaxedParsing         bool
	LoudParsing            bool
	ValidateRequiredFields bool
	TCPNoDelay             bool
	TCPQuickAck            bool
	TestSession            bool
}

// Platform is the process-wide [platform] block's settings.
type Platform struct {
	InputThreads     int
	WriterThreads    int
	UpdateDelay      time.Duration
	EpollTimeout     time.Duration
	LogPath          string
	DataPath         string
	AdminWebsitePort int

	// AdminNATSURL and AdminNATSSubject configure the admin page's
	// optional JetStream fan-out of accepted application messages.
	// AdminNATSURL empty disables the fan-out entirely.
	AdminNATSURL     string
	AdminNATSSubject string
}

// Config is a fully-loaded configuration: one Platform block plus
// every [session.*] block found.
type Config struct {
	Platform Platform
	Sessions []Session
}

// Load reads configuration from path (any format viper supports: INI,
// YAML, TOML, JSON) layered under environment variable overrides
// (FIXGATE_ prefix), applying the §6 defaults for anything unset.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FIXGATE")
	v.AutomaticEnv()
	applyDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	cfg := &Config{Platform: loadPlatform(v)}

	sessionNames, _ := v.Get("sessions").([]interface{})
	for _, raw := range sessionNames {
		name, ok := raw.(string)
		if !ok {
			continue
		}
		sess, err := loadSession(v, name)
		if err != nil {
			return nil, err
		}
		cfg.Sessions = append(cfg.Sessions, sess)
	}
	return cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("platform.input_threads", 4)
	v.SetDefault("platform.writer_threads", 4)
	v.SetDefault("platform.update_delay_ms", 100)
	v.SetDefault("platform.epoll_timeout_ms", 100)
	v.SetDefault("platform.log_path", "./log")
	v.SetDefault("platform.data_path", "./data")
	v.SetDefault("platform.admin_website_port", 0)
	v.SetDefault("platform.admin_nats_url", "")
	v.SetDefault("platform.admin_nats_subject", "fixgate.accepted")

	v.SetDefault("session.connect_timeout_ms", 5000)
	v.SetDefault("session.heartbeat_interval_s", 10)
	v.SetDefault("session.logon_interval_s", 10)
	v.SetDefault("session.reconnect_interval_s", 10)
	v.SetDefault("session.test_request_threshold", 2.0)
	v.SetDefault("session.sending_time_threshold_s", 10)
	v.SetDefault("session.reset_seq_num_on_logon", false)
	v.SetDefault("session.relaxed_parsing", false)
	v.SetDefault("session.loud_parsing", true)
	v.SetDefault("session.validate_required_fields", false)
	v.SetDefault("session.tcp_no_delay", true)
	v.SetDefault("session.tcp_quick_ack", true)
	v.SetDefault("session.test_session", false)
}

func loadPlatform(v *viper.Viper) Platform {
	return Platform{
		InputThreads:     v.GetInt("platform.input_threads"),
		WriterThreads:    v.GetInt("platform.writer_threads"),
		UpdateDelay:      time.Duration(v.GetInt64("platform.update_delay_ms")) * time.Millisecond,
		EpollTimeout:     time.Duration(v.GetInt64("platform.epoll_timeout_ms")) * time.Millisecond,
		LogPath:          v.GetString("platform.log_path"),
		DataPath:         v.GetString("platform.data_path"),
		AdminWebsitePort: v.GetInt("platform.admin_website_port"),
		AdminNATSURL:     v.GetString("platform.admin_nats_url"),
		AdminNATSSubject: v.GetString("platform.admin_nats_subject"),
	}
}

func loadSession(v *viper.Viper, name string) (Session, error) {
	prefix := "session." + name + "."
	get := func(key string) string { return v.GetString(prefix + key) }
	getOr := func(key, fallback string) string {
		if v.IsSet(prefix + key) {
			return v.GetString(prefix + key)
		}
		if v.IsSet("session." + key) {
			return v.GetString("session." + key)
		}
		return fallback
	}
	getBoolOr := func(key string, fallback bool) bool {
		if v.IsSet(prefix + key) {
			return v.GetBool(prefix + key)
		}
		if v.IsSet("session." + key) {
			return v.GetBool("session." + key)
		}
		return fallback
	}
	getDurSOr := func(key string) time.Duration {
		if v.IsSet(prefix + key) {
			return time.Duration(v.GetInt64(prefix+key)) * time.Second
		}
		return time.Duration(v.GetInt64("session."+key)) * time.Second
	}
	getDurMsOr := func(key string) time.Duration {
		if v.IsSet(prefix + key) {
			return time.Duration(v.GetInt64(prefix+key)) * time.Millisecond
		}
		return time.Duration(v.GetInt64("session."+key)) * time.Millisecond
	}
	getFloatOr := func(key string) float64 {
		if v.IsSet(prefix + key) {
			return v.GetFloat64(prefix + key)
		}
		return v.GetFloat64("session." + key)
	}

	role := SessionType(get("role"))
	if role != Acceptor && role != Initiator {
		return Session{}, fmt.Errorf("config: session %q has invalid role %q", name, role)
	}

	return Session{
		Name:          name,
		Role:          role,
		BeginString:   getOr("begin_string", "FIX.4.2"),
		SenderCompID:  get("sender_comp_id"),
		TargetCompID:  get("target_comp_id"),
		FIXDictionary: get("fix_dictionary"),

		AcceptPort:  v.GetInt(prefix + "accept_port"),
		ConnectHost: get("connect_host"),
		ConnectPort: v.GetInt(prefix + "connect_port"),

		ConnectTimeout:       getDurMsOr("connect_timeout_ms"),
		HeartbeatInterval:    getDurSOr("heartbeat_interval_s"),
		LogonInterval:        getDurSOr("logon_interval_s"),
		ReconnectInterval:    getDurSOr("reconnect_interval_s"),
		TestRequestThreshold: getFloatOr("test_request_threshold"),
		SendingTimeThreshold: getDurSOr("sending_time_threshold_s"),

		ResetSeqNumOnLogon:     getBoolOr("reset_seq_num_on_logon", false),
		RelaxedParsing:         getBoolOr("relaxed_parsing", false),
		LoudParsing:            getBoolOr("loud_parsing", true),
		ValidateRequiredFields: getBoolOr("validate_required_fields", false),
		TCPNoDelay:             getBoolOr("tcp_no_delay", true),
		TCPQuickAck:            getBoolOr("tcp_quick_ack", true),
		TestSession:            getBoolOr("test_session", false),
	}, nil
}
