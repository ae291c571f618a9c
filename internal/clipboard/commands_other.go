//go:build !linux && !darwin && !windows

package clipboard

func platformCommands() []Command {
	return nil
}
