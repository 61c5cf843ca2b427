//go:build rp2040

package main

import (
	"machine"
	"time"

	"linebot/config"
	"linebot/core"
	"linebot/protocol"
)

const displayShiftHz = 1000000

var (
	robot     *core.Robot
	telemetry *core.Telemetry

	// Buffers for the host link
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput

	// Debug counters
	msgerrors uint32

	// USB connection state tracking
	usbWasDisconnected       bool
	consecutiveWriteFailures uint32
)

func main() {
	// Disable watchdog on boot to clear any previous state
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	InitUSB()
	InitClock()

	cfg := config.DefaultConfig()
	pins, err := cfg.Pins()
	if err != nil {
		halt()
	}
	opts, err := cfg.ToOptions()
	if err != nil {
		halt()
	}

	channels := make([]core.ADCChannelID, 0, core.NumSensors)
	for _, s := range opts.Sensors {
		channels = append(channels, s.Channel)
	}
	adc := NewRPAdcDriver(channels)
	core.SetADCDriver(adc)

	gpio := NewRPGPIODriver(pins.Encoders)
	core.SetGPIODriver(gpio)
	core.SetPhaseReader(gpio)

	motors, err := NewRP2040MotorDriver(pins.MotorRight, pins.MotorLeft)
	if err != nil {
		halt()
	}
	core.SetMotorDriver(motors)
	core.SetPowerControl(RP2040Power{})

	shifter, err := NewPIOShifter(0, machine.Pin(pins.DisplayClock), machine.Pin(pins.DisplayData), displayShiftHz)
	if err != nil {
		halt()
	}
	core.SetDisplayBus(shifter, newLatchPin(machine.Pin(pins.DisplayLatch)))

	robot = core.NewRobot(core.RegisteredHardware(), opts)
	adc.Attach(robot.IRQ)
	if opts.ButtonActiveHigh {
		gpio.ConfigureInputPullDown(opts.ButtonPin)
	} else {
		gpio.ConfigureInputPullUp(opts.ButtonPin)
	}
	gpio.EnableEdgeInterrupts(opts.ButtonPin, opts.ButtonActiveHigh)

	inputBuffer = protocol.NewFifoBuffer(256)
	telemetry = core.NewTelemetry()
	telemetry.Attach(robot)
	outputBuffer = telemetry.Output()

	// ACKs go out as soon as they are framed
	telemetry.Transport().SetFlushCallback(writeUSB)

	core.SetDebugWriter(func(s string) {
		USBWriteBytes([]byte(s + "\r\n"))
	})

	robot.Start()

	go usbReaderLoop()

	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					inputBuffer.Reset()
					outputBuffer.Reset()
				}
			}()

			UpdateSystemTime()

			if inputBuffer.Available() > 0 {
				data := inputBuffer.Data()
				originalLen := len(data)
				inputBuf := protocol.NewSliceInputBuffer(data)
				telemetry.Receive(inputBuf)
				if consumed := originalLen - inputBuf.Available(); consumed > 0 {
					inputBuffer.Pop(consumed)
				}
			}

			robot.Poll()

			if len(outputBuffer.Result()) > 0 {
				writeUSB()
			}
		}()

		time.Sleep(10 * time.Microsecond)
	}
}

// halt parks the core on a configuration error; the fixed board
// configuration never fails
func halt() {
	for {
		time.Sleep(time.Second)
	}
}

// usbReaderLoop moves USB bytes into inputBuffer
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		if USBAvailable() > 0 {
			data, err := USBRead()
			if err != nil {
				msgerrors++
				time.Sleep(1 * time.Millisecond)
				continue
			}

			// a host that reconnects starts from a clean link
			if usbWasDisconnected {
				usbWasDisconnected = false
				inputBuffer.Reset()
				outputBuffer.Reset()
				telemetry.Transport().Reset()
				consecutiveWriteFailures = 0
			}

			if inputBuffer.Write([]byte{data}) == 0 {
				msgerrors++
				time.Sleep(10 * time.Millisecond)
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// writeUSB sends the framed output, dropping it after repeated failures
func writeUSB() {
	result := outputBuffer.Result()
	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				usbWasDisconnected = true
				consecutiveWriteFailures = 0
				outputBuffer.Reset()
				inputBuffer.Reset()
			}
			return
		}
		written += n
	}
	consecutiveWriteFailures = 0
	outputBuffer.Reset()
}
