// Package config loads alertlens configuration from local and global YAML
// files. It is internal; CLI code maps flags and files into analyzer options
// with the precedence CLI > local > global.
package config
