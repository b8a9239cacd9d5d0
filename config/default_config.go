package config

import _ "embed"

// DefaultConfigYAML 编译期嵌入的默认配置，保证零配置也可启动
//
//go:embed default_config.yaml
var DefaultConfigYAML []byte
