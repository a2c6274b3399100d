package app

import (
	"fmt"
	"os"
	"text/tabwriter"

	"spotwatch/internal/limits"
	"spotwatch/internal/threshold"
)

func (a *App) withLimits(fn func(repo *limits.Repository, set *threshold.LimitSet) error) error {
	local, closeLocal, err := a.openLocalStore()
	if err != nil {
		return err
	}
	defer closeLocal()

	repo := limits.NewRepository(local, a.Logger)
	set, err := repo.Load()
	if err != nil {
		return err
	}

	if err := fn(repo, &set); err != nil {
		return err
	}
	return repo.Save(set)
}

// LimitsList prints the configured limits with their visibility.
func (a *App) LimitsList() error {
	local, closeLocal, err := a.openLocalStore()
	if err != nil {
		return err
	}
	defer closeLocal()

	set, err := limits.NewRepository(local, a.Logger).Load()
	if err != nil {
		return err
	}

	visible := make(map[string]bool, len(set.Visible))
	for _, d := range set.Visible {
		visible[d] = true
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Device\tLower\tUpper\tVisible")
	for _, name := range set.Devices() {
		switch entry := set.Limits[name].(type) {
		case threshold.Band:
			fmt.Fprintf(writer, "%s\t%s\t%s\t%v\n", name, entry.Lower.StringFixed(1), entry.Upper.StringFixed(1), visible[name])
		case threshold.Scalar:
			fmt.Fprintf(writer, "%s\t-\t%s\t%v\n", name, entry.Cutoff.StringFixed(1), visible[name])
		}
	}
	return writer.Flush()
}

// LimitsAdd registers a new device with a price band.
func (a *App) LimitsAdd(name, lower, upper string) error {
	return a.withLimits(func(_ *limits.Repository, set *threshold.LimitSet) error {
		band, err := threshold.ParseBand(lower, upper)
		if err != nil {
			return err
		}
		return set.AddDevice(name, band)
	})
}

// LimitsSet replaces an existing device's band.
func (a *App) LimitsSet(name, lower, upper string) error {
	return a.withLimits(func(_ *limits.Repository, set *threshold.LimitSet) error {
		band, err := threshold.ParseBand(lower, upper)
		if err != nil {
			return err
		}
		return set.UpdateDevice(name, band)
	})
}

// LimitsSetGeneral replaces the global cutoff.
func (a *App) LimitsSetGeneral(value string) error {
	return a.withLimits(func(_ *limits.Repository, set *threshold.LimitSet) error {
		scalar, err := threshold.ParseCutoff(value)
		if err != nil {
			return err
		}
		set.SetGeneral(scalar)
		return nil
	})
}

// LimitsRemove deletes a device.
func (a *App) LimitsRemove(name string) error {
	return a.withLimits(func(_ *limits.Repository, set *threshold.LimitSet) error {
		return set.RemoveDevice(name)
	})
}

// LimitsSetVisible toggles whether a device shows up in evaluation output.
func (a *App) LimitsSetVisible(name string, visible bool) error {
	return a.withLimits(func(_ *limits.Repository, set *threshold.LimitSet) error {
		return set.SetVisible(name, visible)
	})
}
