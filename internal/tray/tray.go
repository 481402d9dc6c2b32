package tray

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"
	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"github.com/langquence/correct-tray/internal/app"
	"github.com/langquence/correct-tray/internal/config"
	"github.com/langquence/correct-tray/internal/logging"
)

const (
	appTitle      = "Langquence"
	maxMenuText   = 40
	noCorrection  = "Last correction: none"
	modeToggle    = "Mode: Toggle"
	modePushToTlk = "Mode: Push-to-Talk"
)

// Swapped in tests.
var notify = beeep.Notify

type UI struct {
	app     *app.App
	cfg     *config.Config
	version string
	commit  string
	log     zerolog.Logger

	mu        sync.Mutex
	ready     bool
	state     app.State
	countdown int
	// Copies of the settings this UI toggles; App owns cfg under its own lock.
	mode     string
	notifyOn bool

	// Menu items
	mStartStop *systray.MenuItem
	mMode      *systray.MenuItem
	mDevices   *systray.MenuItem
	mArchive   *systray.MenuItem
	mClipboard *systray.MenuItem
	mNotify    *systray.MenuItem
	mLast      *systray.MenuItem
}

func New(application *app.App, cfg *config.Config, version, commit string, log zerolog.Logger) *UI {
	return &UI{
		app:      application,
		cfg:      cfg,
		version:  version,
		commit:   commit,
		log:      log,
		state:    app.Idle,
		mode:     cfg.Mode,
		notifyOn: cfg.Notify,
	}
}

// SetApp sets the app reference (for circular dependency resolution)
func (u *UI) SetApp(application *app.App) {
	u.app = application
}

// Status update methods for the app to call

func (u *UI) SetIdle()      { u.setState(app.Idle) }
func (u *UI) SetListening() { u.setState(app.Listening) }
func (u *UI) SetSuccess()   { u.setState(app.Success) }
func (u *UI) SetNoInput()   { u.setState(app.NoInput) }

func (u *UI) SetError(msg string) {
	u.log.Warn().Str("reason", msg).Msg("Tray showing error")
	u.setState(app.Error)
	u.notify("Recording failed", msg)
}

// SetCountdown shows the seconds left while listening
func (u *UI) SetCountdown(seconds int) {
	u.mu.Lock()
	if u.state != app.Listening {
		u.mu.Unlock()
		return
	}
	u.countdown = seconds
	u.mu.Unlock()
	u.refresh()
}

func (u *UI) SetCorrection(text string) {
	u.setLast("Last: " + shorten(text, maxMenuText))
	u.notify("Correction", text)
}

func (u *UI) SetCorrectionFailed(reason string) {
	u.setLast("Last correction failed")
	u.notify("Correction failed", reason)
}

func (u *UI) setState(s app.State) {
	u.mu.Lock()
	u.state = s
	if s != app.Listening {
		u.countdown = 0
	}
	u.mu.Unlock()
	u.refresh()
}

func (u *UI) setLast(title string) {
	u.mu.Lock()
	ready := u.ready
	u.mu.Unlock()
	if ready {
		u.mLast.SetTitle(title)
	}
}

func (u *UI) notify(title, message string) {
	u.mu.Lock()
	enabled := u.notifyOn
	u.mu.Unlock()
	if !enabled {
		return
	}
	if err := notify(appTitle+": "+title, message, ""); err != nil {
		u.log.Debug().Err(err).Msg("Notification failed")
	}
}

// refresh redraws the title and start/stop item from the current state
func (u *UI) refresh() {
	u.mu.Lock()
	ready, state, countdown := u.ready, u.state, u.countdown
	u.mu.Unlock()

	if !ready {
		return
	}
	systray.SetTitle(titleFor(state, countdown))
	if state == app.Listening {
		u.mStartStop.SetTitle("Stop Recording")
	} else if state.Terminal() {
		u.mStartStop.SetTitle("Dismiss")
	} else {
		u.mStartStop.SetTitle("Start Recording")
	}
}

func (u *UI) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) onReady() {
	systray.SetTooltip("Voice correction")

	// Build menu
	u.mStartStop = systray.AddMenuItem("Start Recording", "Press hotkey to record")
	systray.AddSeparator()

	u.mu.Lock()
	mode, notifyOn := u.mode, u.notifyOn
	u.mu.Unlock()

	u.mMode = systray.AddMenuItem(modeTitle(mode), "Toggle between modes")
	u.mDevices = systray.AddMenuItem("Microphone", "Select audio device")
	u.buildDeviceMenu()

	systray.AddSeparator()
	u.mArchive = systray.AddMenuItemCheckbox("Save Recordings", "Keep a WAV copy of each recording", u.cfg.Archive.Enabled)
	u.mClipboard = systray.AddMenuItemCheckbox("Copy to Clipboard", "Copy corrected text", u.cfg.Inject.CopyToClipboard)
	u.mNotify = systray.AddMenuItemCheckbox("Notifications", "Show desktop notifications", notifyOn)

	systray.AddSeparator()
	u.mLast = systray.AddMenuItem(noCorrection, "")
	u.mLast.Disable()
	if last := u.app.LastCorrection(); last.Text != "" {
		u.mLast.SetTitle("Last: " + shorten(last.Text, maxMenuText))
	}

	systray.AddSeparator()
	mFolder := systray.AddMenuItem("Open Recordings Folder", "Where recordings are saved")
	mAbout := systray.AddMenuItem("About", "About "+appTitle)
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	u.mu.Lock()
	u.ready = true
	u.mu.Unlock()
	u.refresh()

	// Event loop
	go u.handleEvents(mFolder, mAbout, mQuit)
}

func (u *UI) handleEvents(mFolder, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mStartStop.ClickedCh:
			u.app.Toggle()
		case <-u.mMode.ClickedCh:
			u.toggleMode()
		case <-u.mArchive.ClickedCh:
			u.toggleArchive()
		case <-u.mClipboard.ClickedCh:
			u.toggleClipboard()
		case <-u.mNotify.ClickedCh:
			u.toggleNotify()
		case <-mFolder.ClickedCh:
			u.openFolder()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (u *UI) buildDeviceMenu() {
	devices, err := u.app.ListDevices()
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to list audio devices")
		u.mDevices.Disable()
		return
	}

	var mu sync.Mutex
	deviceItems := make(map[string]*systray.MenuItem)

	for _, dev := range devices {
		item := u.mDevices.AddSubMenuItemCheckbox(dev.Name, "", isSelected(dev, u.cfg.Audio.DeviceID))
		deviceItems[dev.ID] = item

		go func(deviceID, deviceName string, menuItem *systray.MenuItem) {
			for range menuItem.ClickedCh {
				if err := u.app.SetDevice(deviceID); err != nil {
					u.log.Warn().Err(err).Str("device", deviceName).Msg("Could not change audio device")
					continue
				}

				mu.Lock()
				for id, itm := range deviceItems {
					if id != deviceID {
						itm.Uncheck()
					}
				}
				mu.Unlock()
				menuItem.Check()
				u.log.Info().Str("device", deviceName).Msg("Changed audio device")
			}
		}(dev.ID, dev.Name, item)
	}
}

func (u *UI) toggleMode() {
	u.mu.Lock()
	oldMode := u.mode
	newMode := config.ModePushToTalk
	if oldMode == config.ModePushToTalk {
		newMode = config.ModeToggle
	}
	u.mode = newMode
	u.mu.Unlock()

	if err := u.app.SetMode(newMode); err != nil {
		u.log.Warn().Err(err).Msg("Failed to save mode")
	}
	u.mMode.SetTitle(modeTitle(newMode))
	u.log.Info().Str("from", oldMode).Str("to", newMode).Msg("Changed mode")
}

func (u *UI) toggleArchive() {
	enabled := !u.mArchive.Checked()
	if err := u.app.SetArchiveEnabled(enabled); err != nil {
		u.log.Warn().Err(err).Msg("Failed to save archive setting")
	}
	setChecked(u.mArchive, enabled)
	u.log.Info().Bool("enabled", enabled).Msg("Save recordings")
}

func (u *UI) toggleClipboard() {
	enabled := !u.mClipboard.Checked()
	if err := u.app.SetCopyToClipboard(enabled); err != nil {
		u.log.Warn().Err(err).Msg("Failed to save clipboard setting")
	}
	setChecked(u.mClipboard, enabled)
	u.log.Info().Bool("enabled", enabled).Msg("Copy to clipboard")
}

func (u *UI) toggleNotify() {
	enabled := !u.mNotify.Checked()
	if err := u.app.SetNotify(enabled); err != nil {
		u.log.Warn().Err(err).Msg("Failed to save notification setting")
	}
	u.setNotify(enabled)
	setChecked(u.mNotify, enabled)
	u.log.Info().Bool("enabled", enabled).Msg("Notifications")
}

func (u *UI) setNotify(enabled bool) {
	u.mu.Lock()
	u.notifyOn = enabled
	u.mu.Unlock()
}

func (u *UI) openFolder() {
	// TODO: Open with the platform file manager
	u.log.Info().Str("path", u.cfg.Archive.Dir).Msg("Recordings folder")
	fmt.Println(u.cfg.Archive.Dir)
}

func (u *UI) showAbout() {
	// TODO: Show about dialog with native UI
	fmt.Printf("%s %s (%s)\nVoice correction client\nLogs: %s\n", appTitle, u.version, u.commit, logging.LogPath())
}

func (u *UI) onExit() {
	u.mu.Lock()
	u.ready = false
	u.mu.Unlock()
}

func setChecked(item *systray.MenuItem, checked bool) {
	if checked {
		item.Check()
	} else {
		item.Uncheck()
	}
}
