package vhkb

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/brutella/hap/log"
)

const refreshReset = 1 * time.Second

// Switch is the host-visible refresh switch; the adapter only ever turns it back off.
type Switch interface {
	SetOn(bool)
}

// Adapter maps HomeKit characteristic reads and writes onto device registers.
// It keeps no device state: every call is a round trip.
type Adapter struct {
	regs    Registers
	refresh Switch
	metrics *Metrics

	resetDelay time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	pending    sync.WaitGroup
}

func NewAdapter(regs Registers, refresh Switch, m *Metrics) *Adapter {
	ctx, cancel := context.WithCancel(context.Background())
	return &Adapter{
		regs:       regs,
		refresh:    refresh,
		metrics:    m,
		resetDelay: refreshReset,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (a *Adapter) SetActive(ctx context.Context, on bool) error {
	v := 0
	if on {
		v = 1
	}
	log.Info.Printf("setting active to %t", on)
	return a.regs.Write(ctx, regSpeed, v)
}

func (a *Adapter) GetActive(ctx context.Context) (bool, error) {
	v, err := a.read(ctx, regSpeed, 1)
	if err != nil {
		return false, err
	}
	return v > 0, nil
}

func (a *Adapter) SetRotationSpeed(ctx context.Context, percent int) error {
	level := percentToLevel(clampPercent(percent))
	log.Info.Printf("setting rotation speed %d%% as level %d", percent, level)
	return a.regs.Write(ctx, regSpeed, level)
}

func (a *Adapter) GetRotationSpeed(ctx context.Context) (int, error) {
	v, err := a.read(ctx, regSpeed, 1)
	if err != nil {
		return 0, err
	}
	return levelToPercent(v), nil
}

// SetRefresh sends the boost command and flips the switch back off after resetDelay.
// Turning the switch off does nothing.
func (a *Adapter) SetRefresh(ctx context.Context, trigger bool) error {
	if !trigger {
		return nil
	}
	log.Info.Println("starting refresh")
	if err := a.regs.Write(ctx, regMode, modeBoost); err != nil {
		return err
	}

	a.pending.Add(1)
	go func() {
		defer a.pending.Done()
		t := time.NewTimer(a.resetDelay)
		defer t.Stop()

		select {
		case <-t.C:
			a.refresh.SetOn(false)
		case <-a.ctx.Done():
			log.Debug.Println("refresh reset canceled")
		}
	}()
	return nil
}

// GetTimer never fails; an unreachable device reads as 0.
func (a *Adapter) GetTimer(ctx context.Context) int {
	v, err := a.read(ctx, regTimer, timerCount)
	if err != nil {
		log.Info.Printf("timer unavailable, reporting 0: %s", err.Error())
		a.metrics.timer(0)
		return 0
	}
	level := clampPercent(v)
	a.metrics.timer(level)
	return level
}

// Close cancels pending refresh resets and waits for them.
func (a *Adapter) Close() {
	a.cancel()
	a.pending.Wait()
}

func (a *Adapter) read(ctx context.Context, register, count int) (int, error) {
	values, err := a.regs.Read(ctx, register, count)
	if err != nil {
		return 0, err
	}
	v, ok := values[strconv.Itoa(register)]
	if !ok {
		log.Debug.Printf("register %d missing from %+v", register, values)
	}
	return v, nil
}
