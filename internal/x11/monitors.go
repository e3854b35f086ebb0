package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// Monitor represents a physical display. Work* hold the usable area after
// subtracting panel and dock struts.
type Monitor struct {
	ID     int
	Name   string
	X      int
	Y      int
	Width  int
	Height int

	WorkX      int
	WorkY      int
	WorkWidth  int
	WorkHeight int
}

// GetMonitors retrieves all active monitors using XRandR and computes the
// usable work area of each one.
func (c *Connection) GetMonitors() ([]Monitor, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor

	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		outputName := fmt.Sprintf("Monitor%d", i)
		if outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply(); err == nil {
			outputName = string(outputInfo.Name)
		}

		mon := Monitor{
			ID:     i,
			Name:   outputName,
			X:      int(crtcInfo.X),
			Y:      int(crtcInfo.Y),
			Width:  int(crtcInfo.Width),
			Height: int(crtcInfo.Height),
		}
		mon.WorkX, mon.WorkY = mon.X, mon.Y
		mon.WorkWidth, mon.WorkHeight = mon.Width, mon.Height
		c.applyWorkArea(&mon)

		monitors = append(monitors, mon)
	}

	if len(monitors) == 0 {
		return nil, fmt.Errorf("no monitors found")
	}
	return monitors, nil
}

// GetActiveMonitor returns the monitor containing the active window, falling
// back to the monitor under the pointer and finally to the first monitor.
func (c *Connection) GetActiveMonitor() (*Monitor, error) {
	monitors, err := c.GetMonitors()
	if err != nil {
		return nil, err
	}

	if activeWin, err := ewmh.ActiveWindowGet(c.XUtil); err == nil && activeWin != 0 {
		if mon := findMonitorForWindow(c, monitors, activeWin); mon != nil {
			return mon, nil
		}
	}

	if mon := findMonitorForPointer(c, monitors); mon != nil {
		return mon, nil
	}

	return &monitors[0], nil
}

// MonitorForPoint returns the monitor whose bounds contain (x, y), or nil.
func MonitorForPoint(monitors []Monitor, x, y int) *Monitor {
	for i := range monitors {
		mon := &monitors[i]
		if x >= mon.X && x < mon.X+mon.Width && y >= mon.Y && y < mon.Y+mon.Height {
			return mon
		}
	}
	return nil
}

// applyWorkArea shrinks the monitor's work area by dock struts, falling back
// to _NET_WORKAREA when no window publishes struts.
func (c *Connection) applyWorkArea(mon *Monitor) {
	if c.applyDockStruts(mon) {
		return
	}

	workArea, err := ewmh.WorkareaGet(c.XUtil)
	if err != nil || len(workArea) == 0 {
		return
	}

	desktopIndex := 0
	if currentDesktop, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil {
		if int(currentDesktop) >= 0 && int(currentDesktop) < len(workArea) {
			desktopIndex = int(currentDesktop)
		}
	}
	wa := workArea[desktopIndex]

	isect := monitorBox(mon).intersect(box{
		x1: int(wa.X),
		y1: int(wa.Y),
		x2: int(wa.X) + int(wa.Width),
		y2: int(wa.Y) + int(wa.Height),
	})
	if isect.empty() {
		return
	}
	mon.WorkX = isect.x1
	mon.WorkY = isect.y1
	mon.WorkWidth = isect.width()
	mon.WorkHeight = isect.height()
}

// applyDockStruts subtracts _NET_WM_STRUT_PARTIAL reservations of dock
// windows that overlap the monitor. Reports whether any strut applied.
func (c *Connection) applyDockStruts(mon *Monitor) bool {
	rootGeom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return false
	}
	rootWidth := int(rootGeom.Width)
	rootHeight := int(rootGeom.Height)

	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return false
	}

	var left, right, top, bottom int
	monBox := monitorBox(mon)

	for _, windowID := range clients {
		if !c.isDockWindow(windowID) {
			continue
		}

		sp, err := ewmh.WmStrutPartialGet(c.XUtil, windowID)
		if err != nil {
			// Some docks only set _NET_WM_STRUT (no partial ranges).
			s, err := ewmh.WmStrutGet(c.XUtil, windowID)
			if err != nil {
				continue
			}
			sp = &ewmh.WmStrutPartial{
				Left: s.Left, Right: s.Right, Top: s.Top, Bottom: s.Bottom,
				LeftStartY: 0, LeftEndY: uint(rootHeight - 1),
				RightStartY: 0, RightEndY: uint(rootHeight - 1),
				TopStartX: 0, TopEndX: uint(rootWidth - 1),
				BottomStartX: 0, BottomEndX: uint(rootWidth - 1),
			}
		}

		if sp.Top > 0 {
			strut := box{x1: int(sp.TopStartX), y1: 0, x2: int(sp.TopEndX) + 1, y2: int(sp.Top)}
			if h := monBox.intersect(strut).height(); h > top {
				top = h
			}
		}
		if sp.Bottom > 0 {
			strut := box{x1: int(sp.BottomStartX), y1: rootHeight - int(sp.Bottom), x2: int(sp.BottomEndX) + 1, y2: rootHeight}
			if h := monBox.intersect(strut).height(); h > bottom {
				bottom = h
			}
		}
		if sp.Left > 0 {
			strut := box{x1: 0, y1: int(sp.LeftStartY), x2: int(sp.Left), y2: int(sp.LeftEndY) + 1}
			if w := monBox.intersect(strut).width(); w > left {
				left = w
			}
		}
		if sp.Right > 0 {
			strut := box{x1: rootWidth - int(sp.Right), y1: int(sp.RightStartY), x2: rootWidth, y2: int(sp.RightEndY) + 1}
			if w := monBox.intersect(strut).width(); w > right {
				right = w
			}
		}
	}

	if left == 0 && right == 0 && top == 0 && bottom == 0 {
		return false
	}

	mon.WorkX = mon.X + left
	mon.WorkY = mon.Y + top
	mon.WorkWidth = mon.Width - left - right
	mon.WorkHeight = mon.Height - top - bottom
	if mon.WorkWidth < 1 {
		mon.WorkWidth = 1
	}
	if mon.WorkHeight < 1 {
		mon.WorkHeight = 1
	}
	return true
}

func (c *Connection) isDockWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		return false
	}
	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_DOCK" {
			return true
		}
	}
	return false
}

// box is a half-open rectangle [x1,x2) x [y1,y2).
type box struct {
	x1, y1, x2, y2 int
}

func monitorBox(mon *Monitor) box {
	return box{x1: mon.X, y1: mon.Y, x2: mon.X + mon.Width, y2: mon.Y + mon.Height}
}

func (b box) intersect(o box) box {
	r := box{
		x1: maxInt(b.x1, o.x1),
		y1: maxInt(b.y1, o.y1),
		x2: minInt(b.x2, o.x2),
		y2: minInt(b.y2, o.y2),
	}
	if r.x2 <= r.x1 || r.y2 <= r.y1 {
		return box{}
	}
	return r
}

func (b box) empty() bool  { return b.x2 <= b.x1 || b.y2 <= b.y1 }
func (b box) width() int   { return maxInt(0, b.x2-b.x1) }
func (b box) height() int  { return maxInt(0, b.y2-b.y1) }

func findMonitorForWindow(c *Connection, monitors []Monitor, windowID xproto.Window) *Monitor {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return nil
	}

	translate, err := xproto.TranslateCoordinates(c.XUtil.Conn(), windowID, c.Root, 0, 0).Reply()
	if err != nil {
		return nil
	}

	centerX := int(translate.DstX) + int(geom.Width)/2
	centerY := int(translate.DstY) + int(geom.Height)/2
	return MonitorForPoint(monitors, centerX, centerY)
}

func findMonitorForPointer(c *Connection, monitors []Monitor) *Monitor {
	pointer, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil
	}
	return MonitorForPoint(monitors, int(pointer.RootX), int(pointer.RootY))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
