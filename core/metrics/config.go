package metrics

// Config selects and configures the metric sinks.
type Config struct {
	PrometheusEnabled bool   `json:"prometheusEnabled"`
	PrometheusPort    string `json:"prometheusPort"`

	InfluxEnabled bool   `json:"influxEnabled"`
	InfluxURL     string `json:"influxUrl"`
	InfluxToken   string `json:"influxToken"`
	InfluxOrg     string `json:"influxOrg"`
	InfluxBucket  string `json:"influxBucket"`
}

// SetDefaults fills unset fields with sensible values.
func (c *Config) SetDefaults() {
	if c.PrometheusPort == "" {
		c.PrometheusPort = "2112"
	}
	if c.InfluxBucket == "" {
		c.InfluxBucket = "loadboard"
	}
}
