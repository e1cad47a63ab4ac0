// Package config loads client settings from a TOML file and the
// environment, validates them and turns them into [client.Option]s.
//
//	s, err := config.Load("fetch.toml", config.DefaultPrefix)
//	opts, err := s.Options(logger)
//	c, err := client.Build(opts...)
//
// Environment variables override file values. With the default prefix
// they are named FETCH_BASE_URL, FETCH_HEADERS ("k:v,k2:v2"),
// FETCH_PARAMS ("k=v,k2=v2"), FETCH_TIMEOUT ("10s"), FETCH_THROTTLE_RPS
// and so on.
package config
