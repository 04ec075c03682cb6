package provision

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"aibootstrap/internal/host"
	"aibootstrap/internal/keyring"
	"aibootstrap/internal/profile"
	"aibootstrap/internal/sources"
)

const (
	nvccCommand     = "nvcc"
	uvInstallerName = "uv-install.sh"
)

// Sequence returns the fixed, ordered provisioning steps
func Sequence() []Step {
	return []Step{
		{
			Name:  "preflight.root",
			Title: "Check for root privileges",
			Apply: requireRoot,
		},
		{
			Name:  "preflight.confirm",
			Title: "Confirm provisioning",
			Apply: confirm,
		},
		{
			Name:  "sources.nonfree",
			Title: "Enable contrib and non-free repository components",
			Check: sourcesEnabled,
			Apply: enableSources,
		},
		{
			Name:  "system.upgrade",
			Title: "Refresh package indexes and upgrade the system",
			Apply: upgradeSystem,
		},
		{
			Name:  "kernel.headers",
			Title: "Install kernel headers for the running kernel",
			Check: headersInstalled,
			Apply: installHeaders,
		},
		packagesStep("nvidia.driver", "Install the NVIDIA driver and firmware", func(e *Env) []string {
			return e.Config.Packages.Driver
		}),
		packagesStep("base.utilities", "Install base utilities", func(e *Env) []string {
			return e.Config.Packages.Utilities
		}),
		{
			Name:  "user.sudo",
			Title: "Grant the target user administrative rights",
			Check: userInAdminGroup,
			Apply: addUserToAdminGroup,
		},
		{
			Name:  "cuda.keyring",
			Title: "Install the CUDA repository keyring",
			Check: keyringInstalled,
			Apply: installKeyring,
		},
		{
			Name:  "cuda.toolkit",
			Title: "Install the CUDA toolkit",
			Check: toolkitInstalled,
			Apply: installToolkit,
		},
		{
			Name:  "cuda.environment",
			Title: "Export CUDA paths and link the toolkit directory",
			Check: cudaEnvironmentConfigured,
			Apply: configureCUDAEnvironment,
		},
		packagesStep("dev.packages", "Install development packages", func(e *Env) []string {
			return e.Config.Packages.Development
		}),
		{
			Name:       "python.uv",
			Title:      "Install the uv Python package manager",
			Check:      uvConfigured,
			Apply:      installUV,
			Verify:     uvReachable,
			SoftVerify: true,
		},
		{
			Name:  "system.cleanup",
			Title: "Clean up unused packages and the package cache",
			Apply: cleanup,
		},
		{
			Name:  "summary",
			Title: "Print the provisioning summary",
			Apply: summarize,
		},
	}
}

// StepNames lists the sequence's step names in order
func StepNames() []string {
	steps := Sequence()
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	return names
}

func requireRoot(_ context.Context, env *Env) error {
	if env.System.EffectiveUID() != 0 {
		return ErrNotRoot
	}
	return nil
}

func confirm(ctx context.Context, env *Env) error {
	if env.AssumeYes {
		return nil
	}
	if env.Prompter == nil {
		return fmt.Errorf("%w: no prompt available, pass --yes to run unattended", ErrDeclined)
	}

	ok, err := env.Prompter.Confirm(ctx, "This will install NVIDIA drivers, CUDA and development tools on this system. Continue?")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeclined, err)
	}
	if !ok {
		return ErrDeclined
	}
	return nil
}

// presentSourceFiles returns the configured source lists that exist
func presentSourceFiles(env *Env) ([]string, error) {
	var present []string
	for _, f := range env.Config.Sources.Files {
		if env.System.PathExists(f) {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil, fmt.Errorf("none of the source lists exist: %s", strings.Join(env.Config.Sources.Files, ", "))
	}
	return present, nil
}

func sourcesEnabled(_ context.Context, env *Env) (bool, error) {
	files, err := presentSourceFiles(env)
	if err != nil {
		return false, err
	}
	for _, f := range files {
		missing, err := sources.Missing(env.System, f, env.Config.Sources.Components)
		if err != nil {
			return false, err
		}
		if missing {
			return false, nil
		}
	}
	return true, nil
}

func enableSources(_ context.Context, env *Env) error {
	files, err := presentSourceFiles(env)
	if err != nil {
		return err
	}

	for _, f := range files {
		missing, err := sources.Missing(env.System, f, env.Config.Sources.Components)
		if err != nil {
			return err
		}
		if !missing {
			continue
		}

		created, err := sources.Backup(env.System, f)
		if err != nil {
			return err
		}
		if created {
			env.changed("backup " + f + sources.BackupSuffix)
		}

		if _, err := sources.Enable(env.System, f, env.Config.Sources.Components); err != nil {
			return err
		}
		env.changed(fmt.Sprintf("enabled %s in %s", strings.Join(env.Config.Sources.Components, " "), f))
	}
	return nil
}

func upgradeSystem(ctx context.Context, env *Env) error {
	if err := env.Apt.Update(ctx); err != nil {
		return err
	}
	return env.Apt.Upgrade(ctx)
}

func headersPackage(env *Env) (string, error) {
	release, err := env.System.KernelRelease()
	if err != nil {
		return "", fmt.Errorf("failed to determine kernel release: %w", err)
	}
	return env.Config.Packages.KernelHeadersPrefix + release, nil
}

func headersInstalled(ctx context.Context, env *Env) (bool, error) {
	pkg, err := headersPackage(env)
	if err != nil {
		return false, err
	}
	return env.System.PackageInstalled(ctx, pkg)
}

func installHeaders(ctx context.Context, env *Env) error {
	pkg, err := headersPackage(env)
	if err != nil {
		return err
	}
	if err := env.Apt.Install(ctx, pkg); err != nil {
		return err
	}
	env.changed(pkg)
	return nil
}

// packagesStep guards each package individually and installs only the absent ones
func packagesStep(name, title string, pkgs func(*Env) []string) Step {
	return Step{
		Name:  name,
		Title: title,
		Check: func(ctx context.Context, env *Env) (bool, error) {
			missing, err := env.Apt.Missing(ctx, pkgs(env)...)
			if err != nil {
				return false, err
			}
			return len(missing) == 0, nil
		},
		Apply: func(ctx context.Context, env *Env) error {
			installed, err := env.Apt.InstallMissing(ctx, pkgs(env)...)
			if err != nil {
				return err
			}
			env.changed(installed...)
			return nil
		},
	}
}

func userInAdminGroup(ctx context.Context, env *Env) (bool, error) {
	account, err := env.TargetAccount(ctx)
	if err != nil {
		return false, err
	}
	return env.System.UserInGroup(account.Username, env.Config.AdminGroup)
}

func addUserToAdminGroup(ctx context.Context, env *Env) error {
	account, err := env.TargetAccount(ctx)
	if err != nil {
		return err
	}
	cmd := host.NewCommand("usermod", "-aG", env.Config.AdminGroup, account.Username)
	if err := env.System.Run(ctx, cmd); err != nil {
		return fmt.Errorf("failed to add %s to %s: %w", account.Username, env.Config.AdminGroup, err)
	}
	env.changed(fmt.Sprintf("added %s to group %s", account.Username, env.Config.AdminGroup))
	return nil
}

func keyringInstalled(ctx context.Context, env *Env) (bool, error) {
	return env.System.PackageInstalled(ctx, env.Config.CUDA.KeyringPackage)
}

func installKeyring(ctx context.Context, env *Env) (err error) {
	cuda := env.Config.CUDA
	dst := filepath.Join(env.TempDir, filepath.Base(cuda.KeyringURL))

	if err := env.System.Download(ctx, cuda.KeyringURL, dst); err != nil {
		return err
	}
	defer func() {
		if rmErr := env.System.Remove(dst); rmErr != nil && err == nil {
			err = rmErr
		}
	}()

	if err := env.Apt.InstallDeb(ctx, dst); err != nil {
		return err
	}
	env.changed(cuda.KeyringPackage)

	if err := env.Apt.Update(ctx); err != nil {
		return err
	}

	checkKeyringFingerprint(env)
	return nil
}

// checkKeyringFingerprint only warns; apt itself rejects a repository signed by another key
func checkKeyringFingerprint(env *Env) {
	cuda := env.Config.CUDA
	if cuda.KeyringFingerprint == "" {
		return
	}
	ok, err := keyring.Verify(env.System, cuda.KeyringPath, cuda.KeyringFingerprint)
	switch {
	case err != nil:
		env.warn(fmt.Sprintf("could not verify keyring %s: %v", cuda.KeyringPath, err))
	case !ok:
		env.warn(fmt.Sprintf("keyring %s does not contain key %s", cuda.KeyringPath, keyring.NormalizeFingerprint(cuda.KeyringFingerprint)))
	}
}

func toolkitInstalled(_ context.Context, env *Env) (bool, error) {
	if env.System.CommandOnPath(nvccCommand) {
		return true, nil
	}
	return env.System.PathExists(env.Config.CUDA.CompilerPath()), nil
}

func installToolkit(ctx context.Context, env *Env) error {
	pkgs := env.Config.CUDA.Packages()
	if err := env.Apt.Install(ctx, pkgs...); err != nil {
		return err
	}
	env.changed(pkgs...)
	return nil
}

func cudaExportLines(env *Env) []string {
	dir := env.Config.CUDA.InstallDir()
	return []string{
		profile.ExportPath(filepath.Join(dir, "bin")),
		profile.ExportLibraryPath(filepath.Join(dir, "lib64")),
	}
}

func userProfilePath(ctx context.Context, env *Env) (string, host.User, error) {
	account, err := env.TargetAccount(ctx)
	if err != nil {
		return "", host.User{}, err
	}
	return filepath.Join(account.HomeDir, env.Config.Profiles.User), account, nil
}

func cudaEnvironmentConfigured(ctx context.Context, env *Env) (bool, error) {
	userProfile, _, err := userProfilePath(ctx, env)
	if err != nil {
		return false, err
	}
	lines := cudaExportLines(env)

	for _, p := range []string{userProfile, env.Config.Profiles.System} {
		ok, err := profile.Satisfied(env.System, p, lines...)
		if err != nil || !ok {
			return false, err
		}
	}
	return env.System.PathExists(env.Config.CUDA.LinkPath()), nil
}

func configureCUDAEnvironment(ctx context.Context, env *Env) error {
	userProfile, account, err := userProfilePath(ctx, env)
	if err != nil {
		return err
	}
	lines := cudaExportLines(env)

	added, err := profile.Ensure(env.System, userProfile, account.Username, lines...)
	if err != nil {
		return err
	}
	if len(added) > 0 {
		env.changed("updated " + userProfile)
	}

	added, err = profile.Ensure(env.System, env.Config.Profiles.System, "", lines...)
	if err != nil {
		return err
	}
	if len(added) > 0 {
		env.changed("updated " + env.Config.Profiles.System)
	}

	cuda := env.Config.CUDA
	if !env.System.PathExists(cuda.LinkPath()) {
		if err := env.System.Symlink(cuda.InstallDir(), cuda.LinkPath()); err != nil {
			return err
		}
		env.changed(fmt.Sprintf("linked %s -> %s", cuda.LinkPath(), cuda.InstallDir()))
	}
	return nil
}

func uvProfileLine(env *Env) string {
	return profile.ExportPath(filepath.Join("$HOME", env.Config.Python.BinDir))
}

func uvBinary(account host.User, env *Env) string {
	return filepath.Join(account.HomeDir, env.Config.Python.BinDir, env.Config.Python.Command)
}

func uvReachable(ctx context.Context, env *Env) (bool, error) {
	account, err := env.TargetAccount(ctx)
	if err != nil {
		return false, err
	}
	if env.System.CommandOnPath(env.Config.Python.Command) {
		return true, nil
	}
	return env.System.PathExists(uvBinary(account, env)), nil
}

func uvConfigured(ctx context.Context, env *Env) (bool, error) {
	reachable, err := uvReachable(ctx, env)
	if err != nil || !reachable {
		return false, err
	}
	userProfile, _, err := userProfilePath(ctx, env)
	if err != nil {
		return false, err
	}
	return env.System.FileContainsLine(userProfile, uvProfileLine(env))
}

func installUV(ctx context.Context, env *Env) error {
	reachable, err := uvReachable(ctx, env)
	if err != nil {
		return err
	}
	if !reachable {
		if err := runUVInstaller(ctx, env); err != nil {
			return err
		}
	}

	userProfile, account, err := userProfilePath(ctx, env)
	if err != nil {
		return err
	}
	added, err := profile.Ensure(env.System, userProfile, account.Username, uvProfileLine(env))
	if err != nil {
		return err
	}
	if len(added) > 0 {
		env.changed("updated " + userProfile)
	}
	return nil
}

// runUVInstaller runs the downloaded script as the target user. sudo resets the
// environment, so installer variables are passed through env(1).
func runUVInstaller(ctx context.Context, env *Env) (err error) {
	account, err := env.TargetAccount(ctx)
	if err != nil {
		return err
	}

	script := filepath.Join(env.TempDir, uvInstallerName)
	if err := env.System.Download(ctx, env.Config.Python.InstallerURL, script); err != nil {
		return err
	}
	defer func() {
		if rmErr := env.System.Remove(script); rmErr != nil && err == nil {
			err = rmErr
		}
	}()

	args := []string{"-u", account.Username, "-H", "env"}
	args = append(args, env.Config.Python.InstallerEnv...)
	args = append(args, "sh", script)
	if err := env.System.Run(ctx, host.NewCommand("sudo", args...)); err != nil {
		return fmt.Errorf("uv installer failed: %w", err)
	}
	env.changed(env.Config.Python.Command)
	return nil
}

func cleanup(ctx context.Context, env *Env) error {
	if err := env.Apt.Autoremove(ctx); err != nil {
		return err
	}
	return env.Apt.Autoclean(ctx)
}

func summarize(_ context.Context, env *Env) error {
	if env.Reporter == nil {
		return nil
	}
	return env.Reporter.Summarize(env.Report())
}
