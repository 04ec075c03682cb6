// Package apt drives apt-get and dpkg non-interactively on top of a host.System.
package apt

import (
	"context"
	"fmt"

	"aibootstrap/internal/host"
	"aibootstrap/internal/logging"
)

const (
	aptGet = "apt-get"
	dpkg   = "dpkg"

	noninteractive = "DEBIAN_FRONTEND=noninteractive"
)

// Manager issues package manager commands against a system
type Manager struct {
	sys    host.System
	logger *logging.Logger
}

// NewManager creates a package manager front end
func NewManager(sys host.System, logger *logging.Logger) *Manager {
	return &Manager{sys: sys, logger: logger}
}

// Update refreshes the package indexes
func (m *Manager) Update(ctx context.Context) error {
	return m.aptGet(ctx, "update")
}

// Upgrade upgrades every installed package
func (m *Manager) Upgrade(ctx context.Context) error {
	return m.aptGet(ctx, "upgrade")
}

// Install installs the given packages in one transaction
func (m *Manager) Install(ctx context.Context, pkgs ...string) error {
	if len(pkgs) == 0 {
		return nil
	}
	m.logger.Info("apt.install", "Installing packages", map[string]interface{}{
		"packages": pkgs,
	})
	args := append([]string{"install"}, pkgs...)
	return m.aptGet(ctx, args...)
}

// Missing returns the subset of pkgs that is not installed, preserving order
func (m *Manager) Missing(ctx context.Context, pkgs ...string) ([]string, error) {
	var missing []string
	for _, pkg := range pkgs {
		installed, err := m.sys.PackageInstalled(ctx, pkg)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", pkg, err)
		}
		if !installed {
			missing = append(missing, pkg)
		}
	}
	return missing, nil
}

// InstallMissing installs only the packages that are absent and returns them
func (m *Manager) InstallMissing(ctx context.Context, pkgs ...string) ([]string, error) {
	missing, err := m.Missing(ctx, pkgs...)
	if err != nil {
		return nil, err
	}
	if len(missing) == 0 {
		m.logger.Debug("apt.install.skip", "All packages already installed", map[string]interface{}{
			"packages": pkgs,
		})
		return nil, nil
	}
	return missing, m.Install(ctx, missing...)
}

// InstallDeb installs a local .deb archive with dpkg
func (m *Manager) InstallDeb(ctx context.Context, path string) error {
	if err := m.sys.Run(ctx, host.NewCommand(dpkg, "-i", path).WithEnv(noninteractive)); err != nil {
		return fmt.Errorf("dpkg -i %s failed: %w", path, err)
	}
	return nil
}

// Autoremove removes automatically installed packages nothing depends on anymore
func (m *Manager) Autoremove(ctx context.Context) error {
	return m.aptGet(ctx, "autoremove")
}

// Autoclean drops cached archives that can no longer be downloaded
func (m *Manager) Autoclean(ctx context.Context) error {
	return m.aptGet(ctx, "autoclean")
}

func (m *Manager) aptGet(ctx context.Context, args ...string) error {
	full := append([]string{"-y", "-q"}, args...)
	cmd := host.NewCommand(aptGet, full...).WithEnv(noninteractive)
	if err := m.sys.Run(ctx, cmd); err != nil {
		return fmt.Errorf("apt-get %s failed: %w", args[0], err)
	}
	return nil
}
