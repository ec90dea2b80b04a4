// Package config provides configuration parsing for gallia projects.
//
// The configuration is stored in gallia.yaml (or .yml, .json, .toml) at
// the project root and read through viper. Every key can be overridden by
// an environment variable: GALLIA_ followed by the key path in upper case
// with dots replaced by underscores.
//
// # Configuration File Structure
//
//	name: todo
//	page: index.html
//	log_level: info
//	debug: false
//	max_update_depth: 100
//	directives:
//	  attr: "@"
//	  prop: "."
//	  event: on-
//	  component: x-component
//	  model: x-model
//	  for: x-for
//	  key: x-key
//	  if: x-if
//	components:
//	  dir: components
//	  extensions: [.yaml, .yml, .json]
//	  cache: true
//	  s3:
//	    bucket: my-components
//	    prefix: site/
//	    region: eu-west-1
//	dev:
//	  host: localhost
//	  port: 3000
//	  watch: [".", "components"]
//	  hot_reload: true
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Port:", cfg.Dev.Port)
//
// GALLIA_DEV_PORT=8080 overrides the port without touching the file.
package config
