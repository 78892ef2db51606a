package vhkb

import (
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
)

type FanSvc struct {
	*service.S

	Active        *characteristic.Active
	RotationSpeed *characteristic.RotationSpeed
	Name          *characteristic.Name
}

func NewFanSvc(name string) *FanSvc {
	s := FanSvc{}
	s.S = service.New(service.TypeFanV2)

	s.Active = characteristic.NewActive()
	s.AddC(s.Active.C)

	// the device has three speeds, but HomeKit gets the full range and we bucket it
	s.RotationSpeed = characteristic.NewRotationSpeed()
	s.RotationSpeed.SetStepValue(1)
	s.AddC(s.RotationSpeed.C)

	s.Name = characteristic.NewName()
	s.Name.SetValue(name)
	s.AddC(s.Name.C)

	s.S.Primary = true

	return &s
}

// RefreshSvc is a momentary switch: on starts the boost, the adapter turns it off again
type RefreshSvc struct {
	*service.S

	On   *characteristic.On
	Name *characteristic.Name
}

func NewRefreshSvc() *RefreshSvc {
	s := RefreshSvc{}
	s.S = service.New(service.TypeSwitch)

	s.On = characteristic.NewOn()
	s.On.SetValue(false)
	s.AddC(s.On.C)

	s.Name = characteristic.NewName()
	s.Name.SetValue("Refresh")
	s.AddC(s.Name.C)

	return &s
}

func (s *RefreshSvc) SetOn(on bool) {
	s.On.SetValue(on)
}

// TimerSvc shows the remaining timer as a filter life level, HomeKit has no timer service
type TimerSvc struct {
	*service.S

	Level *characteristic.FilterLifeLevel
	Name  *characteristic.Name
}

func NewTimerSvc() *TimerSvc {
	s := TimerSvc{}
	s.S = service.New(service.TypeFilterMaintenance)

	// FilterChangeIndication is required by the service
	change := characteristic.NewFilterChangeIndication()
	s.AddC(change.C)

	s.Level = characteristic.NewFilterLifeLevel()
	s.AddC(s.Level.C)

	s.Name = characteristic.NewName()
	s.Name.SetValue("Timer")
	s.AddC(s.Name.C)

	return &s
}
