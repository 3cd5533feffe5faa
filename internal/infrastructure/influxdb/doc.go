// Package influxdb is the InfluxDB 2.x remote store for air-quality readings.
//
// The client works with two sets of credentials:
//   - the operator token from configuration, used only by Provision to
//     create the organisation, the logger's principal and its bucket
//   - the principal derived from store.table (T_USER / T_PASS_secret),
//     used by Connect to open a signed-in session for pings and writes
//
// Each reading becomes one point in the "air_quality" measurement, tagged
// with run_id and host_name, carrying the fields temperature, humidity,
// pressure, gas and quality, stamped with the reading's capture time.
//
// Writes are blocking: the caller learns immediately whether a reading was
// accepted, which the store-and-forward logger relies on.
//
// Usage:
//
//	store := influxdb.New(cfg.Store, logger)
//	if err := store.Provision(ctx); err != nil {
//	    return err
//	}
//	ok, err := store.Connect(ctx)
package influxdb
