// Package tsdb is the VictoriaMetrics remote store for air-quality readings.
//
// It is selected with store.backend: victoriametrics and speaks the InfluxDB
// line protocol that VictoriaMetrics accepts on /write, so a reading lands
// with the same measurement, tags and fields as it would in InfluxDB. Points
// are built by the influxdb package and serialised with the InfluxDB client
// library.
//
// Each write is a single synchronous POST; the caller learns immediately
// whether the reading was accepted.
package tsdb
