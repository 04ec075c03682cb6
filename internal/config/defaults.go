package config

// DefaultConfig returns a configuration with sensible defaults for Debian 12 and CUDA 12.4
func DefaultConfig() Config {
	return Config{
		TargetUser: "",
		AdminGroup: "sudo",
		Sources: SourcesConfig{
			Files: []string{
				"/etc/apt/sources.list",
				"/etc/apt/sources.list.d/debian.sources",
			},
			Components: []string{"contrib", "non-free", "non-free-firmware"},
		},
		Packages: PackagesConfig{
			KernelHeadersPrefix: "linux-headers-",
			Driver:              []string{"nvidia-driver", "firmware-misc-nonfree"},
			Utilities:           []string{"sudo", "curl", "wget", "unzip", "zip"},
			Development:         []string{"build-essential", "git", "gnupg", "ca-certificates", "openssl"},
		},
		CUDA: CUDAConfig{
			Version:            "12.4",
			Components:         []string{"compiler", "libraries", "libraries-dev"},
			InstallRoot:        "/usr/local",
			KeyringPackage:     "cuda-keyring",
			KeyringURL:         "https://developer.download.nvidia.com/compute/cuda/repos/debian12/x86_64/cuda-keyring_1.1-1_all.deb",
			KeyringPath:        "/usr/share/keyrings/cuda-archive-keyring.gpg",
			KeyringFingerprint: "EB693B3035CD5710E231E123A4B469963BF863CC",
		},
		Profiles: ProfilesConfig{
			User:   ".bashrc",
			System: "/etc/profile",
		},
		Python: PythonConfig{
			Command:      "uv",
			InstallerURL: "https://astral.sh/uv/install.sh",
			InstallerEnv: []string{"UV_NO_MODIFY_PATH=1"},
			BinDir:       ".local/bin",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Textfile: "",
		},
	}
}
