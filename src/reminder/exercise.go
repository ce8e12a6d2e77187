package reminder

import (
	"log/slog"
	"time"

	"blink-reminder/src/prefs"
)

// SetExercises persists the exercise settings and re-arms the monitor. A
// non-positive intervalMin keeps the current interval.
func (t *Tracker) SetExercises(enabled bool, intervalMin int) error {
	err := t.prefs.Update(func(p *prefs.Preferences) {
		p.EyeExercisesEnabled = enabled
		if intervalMin > 0 {
			p.ExerciseIntervalMin = intervalMin
		}
	})
	if err != nil {
		return err
	}
	t.RefreshExercises()
	return nil
}

// RefreshExercises applies the stored exercise settings. Enabling starts a
// new baseline; changing the interval keeps it.
func (t *Tracker) RefreshExercises() {
	p := t.prefs.Get()
	ex := &t.exercise
	wasEnabled := ex.enabled
	ex.enabled = p.EyeExercisesEnabled
	ex.interval = time.Duration(p.ExerciseIntervalMin) * time.Minute

	if ex.due != nil {
		ex.due.Stop()
		ex.due = nil
	}
	if !ex.enabled {
		t.cancelSnooze()
		t.popups.CloseExercise()
		return
	}
	if !wasEnabled || ex.baseline.IsZero() {
		ex.baseline = t.sched.Now()
	}
	t.armExercise()
	slog.Debug("reminder: exercises armed", "interval", ex.interval, "baseline", ex.baseline)
}

// ExercisesEnabled reports whether the exercise monitor is running.
func (t *Tracker) ExercisesEnabled() bool { return t.exercise.enabled }

func (t *Tracker) armExercise() {
	ex := &t.exercise
	if ex.due != nil {
		ex.due.Stop()
	}
	wait := ex.baseline.Add(ex.interval).Sub(t.sched.Now())
	if wait < 0 {
		wait = 0
	}
	ex.due = t.sched.AfterFunc(wait, t.exerciseDue)
}

func (t *Tracker) exerciseDue() {
	ex := &t.exercise
	ex.due = nil
	if !ex.enabled {
		return
	}
	t.popups.ShowExercise()
	ex.baseline = t.sched.Now()
	t.armExercise()
}

// SkipExercise closes the exercise popup and restarts the interval from now.
func (t *Tracker) SkipExercise() {
	t.popups.CloseExercise()
	t.cancelSnooze()
	t.exercise.baseline = t.sched.Now()
	if t.exercise.enabled {
		t.armExercise()
	}
}

// SnoozeExercise closes the exercise popup and shows it again after
// SnoozeDelay. The baseline is left alone.
func (t *Tracker) SnoozeExercise() {
	t.popups.CloseExercise()
	t.cancelSnooze()
	t.exercise.snooze = t.sched.AfterFunc(SnoozeDelay, func() {
		t.exercise.snooze = nil
		if t.exercise.enabled {
			t.popups.ShowExercise()
		}
	})
}

func (t *Tracker) cancelSnooze() {
	if t.exercise.snooze != nil {
		t.exercise.snooze.Stop()
		t.exercise.snooze = nil
	}
}
