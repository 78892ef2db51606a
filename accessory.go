package vhkb

import (
	"context"
	"net/http"
	"time"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/log"
)

const (
	statusSuccess              = 0
	statusCommunicationFailure = -70402 // HAP: service communication failure
)

// Ventilation is the HomeKit accessory for one ventilation unit
type Ventilation struct {
	*accessory.A

	Fan     *FanSvc
	Refresh *RefreshSvc
	Timer   *TimerSvc

	adapter *Adapter
}

func NewVentilation(info accessory.Info, regs Registers, m *Metrics) *Ventilation {
	v := Ventilation{}
	v.A = accessory.New(info, accessory.TypeFan)

	v.Fan = NewFanSvc(info.Name)
	v.AddS(v.Fan.S)

	v.Refresh = NewRefreshSvc()
	v.AddS(v.Refresh.S)

	v.Timer = NewTimerSvc()
	v.AddS(v.Timer.S)

	v.adapter = NewAdapter(regs, v.Refresh, m)

	v.Fan.Active.OnSetRemoteValue(func(active int) error {
		return v.adapter.SetActive(context.Background(), active == characteristic.ActiveActive)
	})
	v.Fan.Active.ValueRequestFunc = func(r *http.Request) (interface{}, int) {
		on, err := v.adapter.GetActive(requestContext(r))
		if err != nil {
			log.Info.Println(err.Error())
			return nil, statusCommunicationFailure
		}
		a := activeValue(on)
		v.syncActive(a)
		return a, statusSuccess
	}

	v.Fan.RotationSpeed.OnSetRemoteValue(func(speed float64) error {
		return v.adapter.SetRotationSpeed(context.Background(), int(speed))
	})
	v.Fan.RotationSpeed.ValueRequestFunc = func(r *http.Request) (interface{}, int) {
		speed, err := v.adapter.GetRotationSpeed(requestContext(r))
		if err != nil {
			log.Info.Println(err.Error())
			return nil, statusCommunicationFailure
		}
		v.syncSpeed(float64(speed))
		return float64(speed), statusSuccess
	}

	v.Refresh.On.OnSetRemoteValue(func(on bool) error {
		return v.adapter.SetRefresh(context.Background(), on)
	})

	v.Timer.Level.ValueRequestFunc = func(r *http.Request) (interface{}, int) {
		return float64(v.adapter.GetTimer(requestContext(r))), statusSuccess
	}

	return &v
}

// Adapter gives the status service the same view of the device HomeKit gets
func (v *Ventilation) Adapter() *Adapter {
	return v.adapter
}

// Poll pushes device values into the characteristics so controllers get events.
// Reads are live, this only refreshes what HomeKit last saw.
func (v *Ventilation) Poll(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			v.update(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (v *Ventilation) update(ctx context.Context) {
	on, err := v.adapter.GetActive(ctx)
	if err != nil {
		log.Info.Println(err.Error())
		return
	}
	v.syncActive(activeValue(on))

	speed, err := v.adapter.GetRotationSpeed(ctx)
	if err != nil {
		log.Info.Println(err.Error())
		return
	}
	v.syncSpeed(float64(speed))

	v.Timer.Level.SetValue(float64(v.adapter.GetTimer(ctx)))
}

// hap drops a remote set equal to the cached value, so the cache has to
// follow every device reading or a write to 1130 can be skipped.
func (v *Ventilation) syncActive(a int) {
	if v.Fan.Active.Value() != a {
		log.Info.Printf("updating HomeKit: active %d", a)
		v.Fan.Active.SetValue(a)
	}
}

func (v *Ventilation) syncSpeed(speed float64) {
	if v.Fan.RotationSpeed.Value() != speed {
		log.Info.Printf("updating HomeKit: rotation speed %.0f", speed)
		v.Fan.RotationSpeed.SetValue(speed)
	}
}

// Close cancels any pending refresh reset
func (v *Ventilation) Close() {
	v.adapter.Close()
}

func activeValue(on bool) int {
	if on {
		return characteristic.ActiveActive
	}
	return characteristic.ActiveInactive
}

func requestContext(r *http.Request) context.Context {
	if r == nil {
		return context.Background()
	}
	return r.Context()
}
