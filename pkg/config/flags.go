package config

import (
	"github.com/spf13/pflag"
)

// Flag names.
const (
	FlagConfig           = "config"
	FlagBrokers          = "kafka-broker-addresses"
	FlagTopics           = "topic-names"
	FlagGroupID          = "group-id"
	FlagClientID         = "client-id"
	FlagOffsetReset      = "offset-reset"
	FlagMostRecentCount  = "most-recent-count"
	FlagForwardURL       = "influx-write-url"
	FlagForwardTimeoutMS = "forward-timeout-ms"
	FlagListenIP         = "listen-ip"
	FlagListenPort       = "listen-port"
	FlagTLSCert          = "tls-cert"
	FlagTLSKey           = "tls-key"
	FlagLogDir           = "log-dir"
	FlagLogLevel         = "log-level"
)

// RegisterFlags declares every setting on fs with the built-in defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String(FlagConfig, "", "path to a TOML config file")
	fs.StringSlice(FlagBrokers, nil, "comma separated Kafka bootstrap servers")
	fs.StringSlice(FlagTopics, nil, "comma separated topics to serve")
	fs.String(FlagGroupID, d.GroupID, "Kafka consumer group")
	fs.String(FlagClientID, d.ClientID, "Kafka client id")
	fs.String(FlagOffsetReset, d.OffsetReset, "where a new group starts reading: latest or earliest")
	fs.Int(FlagMostRecentCount, d.MostRecentCount, "keep the last N messages per topic (0 polls on each request)")
	fs.String(FlagForwardURL, d.ForwardURL, "POST converted line protocol to this URL (requires --most-recent-count > 0)")
	fs.Int(FlagForwardTimeoutMS, d.ForwardTimeoutMS, "timeout for each forwarding request in milliseconds")
	fs.String(FlagListenIP, d.ListenIP, "HTTP listen address")
	fs.Int(FlagListenPort, d.ListenPort, "HTTP listen port")
	fs.String(FlagTLSCert, d.TLSCert, "TLS certificate file")
	fs.String(FlagTLSKey, d.TLSKey, "TLS key file")
	fs.String(FlagLogDir, d.LogDir, "directory for log files")
	fs.String(FlagLogLevel, d.LogLevel, "debug, info, warn or error")
}

// ApplyFlags copies every flag that was set on the command line into c.
// Flags left at their default never override the file or the environment.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var err error
	str := func(name string, dst *string) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetString(name)
		}
	}
	slice := func(name string, dst *[]string) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetStringSlice(name)
		}
	}
	num := func(name string, dst *int) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetInt(name)
		}
	}

	slice(FlagBrokers, &c.Brokers)
	slice(FlagTopics, &c.Topics)
	str(FlagGroupID, &c.GroupID)
	str(FlagClientID, &c.ClientID)
	str(FlagOffsetReset, &c.OffsetReset)
	num(FlagMostRecentCount, &c.MostRecentCount)
	str(FlagForwardURL, &c.ForwardURL)
	num(FlagForwardTimeoutMS, &c.ForwardTimeoutMS)
	str(FlagListenIP, &c.ListenIP)
	num(FlagListenPort, &c.ListenPort)
	str(FlagTLSCert, &c.TLSCert)
	str(FlagTLSKey, &c.TLSKey)
	str(FlagLogDir, &c.LogDir)
	str(FlagLogLevel, &c.LogLevel)
	return err
}
