package ddc

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"

	"github.com/flokli/monitor-agent/vcp"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procEnumDisplayMonitors = user32.NewProc("EnumDisplayMonitors")
	procGetMonitorInfo      = user32.NewProc("GetMonitorInfoW")

	dxva2                                       = windows.NewLazySystemDLL("dxva2.dll")
	procGetNumberOfPhysicalMonitorsFromHMONITOR = dxva2.NewProc("GetNumberOfPhysicalMonitorsFromHMONITOR")
	procGetPhysicalMonitorsFromHMONITOR         = dxva2.NewProc("GetPhysicalMonitorsFromHMONITOR")
	procDestroyPhysicalMonitor                  = dxva2.NewProc("DestroyPhysicalMonitor")
	procGetVCPFeatureAndVCPFeatureReply         = dxva2.NewProc("GetVCPFeatureAndVCPFeatureReply")
	procSetVCPFeature                           = dxva2.NewProc("SetVCPFeature")
)

func init() {
	Register("windows", enumerateMonitors)
}

// physicalMonitor mirrors PHYSICAL_MONITOR.
type physicalMonitor struct {
	handle      windows.Handle
	description [128]uint16
}

// monitorInfoEx mirrors MONITORINFOEXW.
type monitorInfoEx struct {
	size    uint32
	monitor windows.Rect
	work    windows.Rect
	flags   uint32
	device  [32]uint16
}

// The callback is created once; Windows callbacks cannot be released.
var (
	enumMu        sync.Mutex
	enumHMonitors []uintptr
	enumCallback  = windows.NewCallback(func(hmonitor, hdc, rect, lparam uintptr) uintptr {
		enumHMonitors = append(enumHMonitors, hmonitor)
		return 1
	})
)

// enumerateMonitors returns a transport for every logical monitor.
func enumerateMonitors() ([]vcp.Transport, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumHMonitors = nil
	if r, _, err := procEnumDisplayMonitors.Call(0, 0, enumCallback, 0); r == 0 {
		return nil, fmt.Errorf("%w: EnumDisplayMonitors: %w", vcp.ErrIO, err)
	}

	transports := make([]vcp.Transport, 0, len(enumHMonitors))
	for i, hmonitor := range enumHMonitors {
		name := monitorDeviceName(hmonitor)
		if name == "" {
			name = fmt.Sprintf("monitor%d", i)
		}
		transports = append(transports, &dxva2Transport{name: name, hmonitor: hmonitor})
	}
	return transports, nil
}

// monitorDeviceName returns the GDI device name ("DISPLAY1") of a monitor.
func monitorDeviceName(hmonitor uintptr) string {
	info := monitorInfoEx{}
	info.size = uint32(unsafe.Sizeof(info))
	if r, _, _ := procGetMonitorInfo.Call(hmonitor, uintptr(unsafe.Pointer(&info))); r == 0 {
		return ""
	}
	return strings.TrimPrefix(windows.UTF16ToString(info.device[:]), `\\.\`)
}

// dxva2Transport controls one monitor through the Windows monitor
// configuration API, which performs DDC/CI on our behalf.
type dxva2Transport struct {
	name        string
	hmonitor    uintptr
	handle      windows.Handle
	description string
}

func (t *dxva2Transport) String() string {
	return t.name
}

func (t *dxva2Transport) Open() error {
	var count uint32
	if r, _, err := procGetNumberOfPhysicalMonitorsFromHMONITOR.Call(t.hmonitor, uintptr(unsafe.Pointer(&count))); r == 0 {
		return callError("GetNumberOfPhysicalMonitorsFromHMONITOR", err)
	}
	switch {
	case count == 0:
		return fmt.Errorf("%w: no physical monitor behind %s", vcp.ErrIO, t.name)
	case count > 1:
		// Physical monitors cannot be opened individually without their own HMONITOR.
		return fmt.Errorf("%w: %d physical monitors behind %s", vcp.ErrIO, count, t.name)
	}

	monitors := make([]physicalMonitor, count)
	if r, _, err := procGetPhysicalMonitorsFromHMONITOR.Call(t.hmonitor, uintptr(count), uintptr(unsafe.Pointer(&monitors[0]))); r == 0 {
		return callError("GetPhysicalMonitorsFromHMONITOR", err)
	}
	t.handle = monitors[0].handle
	t.description = windows.UTF16ToString(monitors[0].description[:])
	log.WithFields(log.Fields{
		"display":     t.name,
		"description": t.description,
	}).Debug("opened physical monitor")
	return nil
}

func (t *dxva2Transport) Close() error {
	if t.handle == 0 {
		return nil
	}
	r, _, err := procDestroyPhysicalMonitor.Call(uintptr(t.handle))
	t.handle = 0
	if r == 0 {
		return callError("DestroyPhysicalMonitor", err)
	}
	return nil
}

func (t *dxva2Transport) GetFeature(code uint8) (int, int, error) {
	var current, maximum uint32
	r, _, err := procGetVCPFeatureAndVCPFeatureReply.Call(
		uintptr(t.handle),
		uintptr(code),
		0,
		uintptr(unsafe.Pointer(&current)),
		uintptr(unsafe.Pointer(&maximum)),
	)
	if r == 0 {
		return 0, 0, callError("GetVCPFeatureAndVCPFeatureReply", err)
	}
	return int(current), int(maximum), nil
}

func (t *dxva2Transport) SetFeature(code uint8, value int) error {
	if value < 0 {
		return fmt.Errorf("%w: negative value %d", vcp.ErrIO, value)
	}
	if r, _, err := procSetVCPFeature.Call(uintptr(t.handle), uintptr(code), uintptr(uint32(value))); r == 0 {
		return callError("SetVCPFeature", err)
	}
	return nil
}

// callError classifies the last error of a failed API call.
func callError(call string, err error) error {
	if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
		return fmt.Errorf("%w: %s: %w", vcp.ErrPermission, call, err)
	}
	return fmt.Errorf("%w: %s: %w", vcp.ErrIO, call, err)
}
