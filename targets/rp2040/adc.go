//go:build rp2040

package main

import (
	"device/rp"
	"errors"
	"machine"
	"runtime/interrupt"
	"runtime/volatile"

	"linebot/core"
)

var errConversion = errors.New("adc: conversion error")

// RpAdcDriver implements core.ADCDriver on the RP2040 converter. A
// conversion is started with START_ONCE and completes through the FIFO
// interrupt, which raises the ADC completion source.
type RpAdcDriver struct {
	result volatile.Register32 // last FIFO entry, written by the ISR
	irq    *core.IRQController
}

var adcDriver *RpAdcDriver

var adcPins = [4]machine.Pin{machine.ADC0, machine.ADC1, machine.ADC2, machine.ADC3}

// NewRPAdcDriver configures the converter and the sensor inputs
func NewRPAdcDriver(channels []core.ADCChannelID) *RpAdcDriver {
	machine.InitADC()
	for _, ch := range channels {
		if int(ch) < len(adcPins) {
			adc := machine.ADC{Pin: adcPins[ch]}
			adc.Configure(machine.ADCConfig{})
		}
	}

	// FIFO on, one-entry threshold, error flag kept with each result
	rp.ADC.FCS.Set(rp.ADC_FCS_EN | rp.ADC_FCS_ERR | 1<<rp.ADC_FCS_THRESH_Pos)
	rp.ADC.INTE.Set(rp.ADC_INTE_FIFO)

	adcDriver = &RpAdcDriver{}
	intr := interrupt.New(rp.IRQ_ADC_IRQ_FIFO, adcFIFOHandler)
	intr.SetPriority(0x80)
	intr.Enable()
	return adcDriver
}

// Attach routes completions to irq
func (d *RpAdcDriver) Attach(irq *core.IRQController) {
	d.irq = irq
}

// StartConversion selects ch and starts one conversion
func (d *RpAdcDriver) StartConversion(ch core.ADCChannelID) error {
	if int(ch) >= len(adcPins) {
		return errors.New("adc: unsupported channel")
	}
	rp.ADC.CS.ReplaceBits(uint32(ch)<<rp.ADC_CS_AINSEL_Pos, rp.ADC_CS_AINSEL_Msk, 0)
	rp.ADC.CS.SetBits(rp.ADC_CS_START_ONCE)
	return nil
}

// ReadLastConversion returns the 12-bit result of the last conversion
func (d *RpAdcDriver) ReadLastConversion() (core.ADCValue, error) {
	v := d.result.Get()
	if v&rp.ADC_FIFO_ERR != 0 {
		return 0, errConversion
	}
	return core.ADCValue(v & rp.ADC_FIFO_VAL_Msk), nil
}

// adcFIFOHandler drains the FIFO, which clears the level interrupt
func adcFIFOHandler(interrupt.Interrupt) {
	var v uint32
	for rp.ADC.FCS.Get()&rp.ADC_FCS_LEVEL_Msk != 0 {
		v = rp.ADC.FIFO.Get()
	}
	adcDriver.result.Set(v)
	woken.Store(true)
	if adcDriver.irq != nil {
		adcDriver.irq.Raise(core.IRQADCComplete)
	}
}
