package config

import "time"

type KernelConfig struct {
	Cores        int           `yaml:"cores" env:"KERNEL_CORES" env-default:"2"`
	PollInterval time.Duration `yaml:"poll_interval" env:"KERNEL_POLL_INTERVAL" env-default:"10ms"`
	// WaitTimeout bounds how long a thread stays parked on one syscall.
	WaitTimeout time.Duration `yaml:"wait_timeout" env:"KERNEL_WAIT_TIMEOUT" env-default:"5s"`
}

type RamdiskConfig struct {
	Manifest string `yaml:"manifest" env:"RAMDISK_MANIFEST"`
}

type PipeConfig struct {
	Capacity int `yaml:"capacity" env:"PIPE_CAPACITY" env-default:"4096"`
}
