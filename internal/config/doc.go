// SPDX-License-Identifier: MPL-2.0

// Package config loads nodesel configuration using Viper with CUE as the file format.
//
// The file is $XDG_CONFIG_HOME/nodesel/config.cue on Linux (the platform
// equivalent elsewhere) and is validated against the embedded
// config_schema.cue before it is merged over the defaults. NODESEL_
// environment variables override file values.
package config
