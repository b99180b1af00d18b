package gimbal

import (
	"sync"
	"testing"
	"time"

	"github.com/Speshl/gimbal_client/internal/shaping"
)

type fakeLink struct {
	mu           sync.Mutex
	systemID     uint8
	componentID  uint8
	vehicleID    uint8
	headingDeg   float64
	paramsReady  bool
	hasPrimary   bool
	commands     []sentCommand
	messages     []WireMessage
}

type sentCommand struct {
	targetCompID           uint8
	cmdID                  uint16
	p1, p2, p3, p4, p5, p6, p7 float64
}

func newFakeLink() *fakeLink {
	return &fakeLink{systemID: 1, componentID: 1, vehicleID: 1, paramsReady: true, hasPrimary: true}
}

func (f *fakeLink) ParametersReady() bool  { return f.paramsReady }
func (f *fakeLink) HeadingDeg() float64    { return f.headingDeg }
func (f *fakeLink) OurSystemID() uint8     { return f.systemID }
func (f *fakeLink) OurComponentID() uint8  { return f.componentID }
func (f *fakeLink) VehicleID() uint8       { return f.vehicleID }

func (f *fakeLink) PrimaryLink() (Link, bool) {
	if !f.hasPrimary {
		return nil, false
	}
	return fakeSubLink{}, true
}

func (f *fakeLink) SendCommand(targetCompID uint8, cmdID uint16, showError bool, p1, p2, p3, p4, p5, p6, p7 float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, sentCommand{
		targetCompID: targetCompID, cmdID: cmdID,
		p1: p1, p2: p2, p3: p3, p4: p4, p5: p5, p6: p6, p7: p7,
	})
	return nil
}

func (f *fakeLink) SendMessageOnLink(link Link, message WireMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeLink) commandCount(cmdID uint16) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.commands {
		if c.cmdID == cmdID {
			n++
		}
	}
	return n
}

func (f *fakeLink) lastCommand(cmdID uint16) (sentCommand, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.commands) - 1; i >= 0; i-- {
		if f.commands[i].cmdID == cmdID {
			return f.commands[i], true
		}
	}
	return sentCommand{}, false
}

func (f *fakeLink) lastMessage() WireMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return nil
	}
	return f.messages[len(f.messages)-1]
}

type fakeSubLink struct{}

func (fakeSubLink) Channel() uint8 { return 0 }

type fakeSettings struct {
	buttonSpeed       float64
	hFov, vFov        float64
	slideSpeed        float64
	joystickEnabled   bool
	pitchAxis         int
	yawAxis           int
	deadband          float64
	expo              float64
	smoothing         float64
	sendRateHz        int
	pitchLimit        float64
	yawLimit          float64
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{
		buttonSpeed:     10,
		hFov:            60,
		vFov:            40,
		slideSpeed:      5,
		joystickEnabled: true,
		pitchAxis:       0,
		yawAxis:         1,
		deadband:        0.05,
		expo:            0.4,
		smoothing:       0.5,
		sendRateHz:      20,
		pitchLimit:      45,
		yawLimit:        90,
	}
}

func (s *fakeSettings) JoystickButtonSpeed() float64          { return s.buttonSpeed }
func (s *fakeSettings) CameraHFov() float64                   { return s.hFov }
func (s *fakeSettings) CameraVFov() float64                   { return s.vFov }
func (s *fakeSettings) CameraSlideSpeed() float64              { return s.slideSpeed }
func (s *fakeSettings) JoystickGimbalEnabled() bool            { return s.joystickEnabled }
func (s *fakeSettings) JoystickGimbalPitchAxisIndex() int      { return s.pitchAxis }
func (s *fakeSettings) JoystickGimbalYawAxisIndex() int        { return s.yawAxis }
func (s *fakeSettings) JoystickGimbalDeadband() float64        { return s.deadband }
func (s *fakeSettings) JoystickGimbalExpo() float64            { return s.expo }
func (s *fakeSettings) JoystickGimbalSmoothing() float64       { return s.smoothing }
func (s *fakeSettings) JoystickGimbalSendRateHz() int          { return s.sendRateHz }
func (s *fakeSettings) JoystickGimbalPitchLimit() float64      { return s.pitchLimit }
func (s *fakeSettings) JoystickGimbalYawLimit() float64        { return s.yawLimit }

func newTestController() (*Controller, *fakeLink, *fakeSettings) {
	link := newFakeLink()
	settings := newFakeSettings()
	return NewController(link, settings), link, settings
}

func completeDiscovery(t *testing.T, c *Controller, pair GimbalPairId) {
	t.Helper()
	c.HandleHeartbeat(Heartbeat{CompID: pair.ManagerCompID})
	c.HandleGimbalManagerInformation(GimbalManagerInformation{
		CompID: pair.ManagerCompID, DeviceID: pair.DeviceID, CapabilityFlags: 0xFF,
	})
	c.HandleGimbalManagerStatus(GimbalManagerStatus{
		CompID: pair.ManagerCompID, DeviceID: pair.DeviceID,
	})
	c.HandleGimbalDeviceAttitudeStatus(GimbalDeviceAttitudeStatus{
		CompID: pair.ManagerCompID, DeviceIDField: pair.DeviceID,
	})
}

func TestDiscoveryHappyPathCompletesAndSelectsActive(t *testing.T) {
	c, _, _ := newTestController()
	pair := GimbalPairId{ManagerCompID: 154, DeviceID: 1}
	completeDiscovery(t, c, pair)

	record, ok := c.Record(pair)
	if !ok || !record.IsComplete {
		t.Fatalf("expected record complete, got %+v ok=%v", record, ok)
	}
	active, ok := c.ActiveGimbal()
	if !ok || active != pair {
		t.Fatalf("expected active gimbal %+v, got %+v ok=%v", pair, active, ok)
	}
}

func TestDiscoveryDeviceIDZeroReverseLookup(t *testing.T) {
	c, _, _ := newTestController()
	pair := GimbalPairId{ManagerCompID: 154, DeviceID: 1}
	completeDiscovery(t, c, pair)

	// A later status with DeviceID 0 should resolve back to the same record
	// rather than creating a bogus zero-device record.
	c.HandleGimbalManagerStatus(GimbalManagerStatus{CompID: 154, DeviceID: 0, PrimarySysID: 1, PrimaryCompID: 1})

	if _, ok := c.Record(GimbalPairId{ManagerCompID: 154, DeviceID: 0}); ok {
		t.Fatalf("expected no record created under the invalid zero-device pair")
	}
	record, ok := c.Record(pair)
	if !ok {
		t.Fatalf("expected original record still present")
	}
	if !record.HaveControl {
		t.Fatalf("expected control resolved onto the original pair's record")
	}
}

func TestContestedControlSignalsPopupOnceFromCommandGateOnly(t *testing.T) {
	c, _, _ := newTestController()
	pair := GimbalPairId{ManagerCompID: 154, DeviceID: 1}
	completeDiscovery(t, c, pair)

	// Status arrival alone records contested ownership but must not itself
	// signal the popup -- only the command gate (tryGetGimbalControlLocked)
	// does that, per spec 8 scenario 3 ("once").
	c.HandleGimbalManagerStatus(GimbalManagerStatus{CompID: 154, DeviceID: 1, PrimarySysID: 9, PrimaryCompID: 9})

	record, _ := c.Record(pair)
	if !record.OthersHaveControl || record.HaveControl {
		t.Fatalf("expected OthersHaveControl, got %+v", record)
	}
	select {
	case <-c.Signals.ShowAcquireGimbalControlPopup:
		t.Fatalf("expected no popup signal from status arrival alone")
	default:
	}

	if err := c.SendPitchBodyYaw(10, 20); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-c.Signals.ShowAcquireGimbalControlPopup:
	default:
		t.Fatalf("expected popup signal from the command gate")
	}
	select {
	case <-c.Signals.ShowAcquireGimbalControlPopup:
		t.Fatalf("expected popup signal exactly once, got a second")
	default:
	}
}

func TestAcquireThenSendPitchBodyYaw(t *testing.T) {
	c, link, _ := newTestController()
	pair := GimbalPairId{ManagerCompID: 154, DeviceID: 1}
	completeDiscovery(t, c, pair)

	// No control yet: first pointing attempt should only acquire, not point.
	if err := c.SendPitchBodyYaw(10, 20); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link.commandCount(MAVCmdDoGimbalManagerConfigure) != 1 {
		t.Fatalf("expected one configure (acquire) command, got %d", link.commandCount(MAVCmdDoGimbalManagerConfigure))
	}
	if link.commandCount(MAVCmdDoGimbalManagerPitchYaw) != 0 {
		t.Fatalf("expected no pitchyaw command sent before control is granted")
	}

	// Grant control via a status update, then retry.
	c.HandleGimbalManagerStatus(GimbalManagerStatus{CompID: 154, DeviceID: 1, PrimarySysID: 1, PrimaryCompID: 1})
	if err := c.SendPitchBodyYaw(10, 20); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cmd, ok := link.lastCommand(MAVCmdDoGimbalManagerPitchYaw)
	if !ok {
		t.Fatalf("expected a DO_GIMBAL_MANAGER_PITCHYAW command once control is granted")
	}
	if cmd.p1 != 10 || cmd.p2 != 20 {
		t.Fatalf("expected pitch=10 yaw=20, got p1=%v p2=%v", cmd.p1, cmd.p2)
	}
	wantFlags := float64(GimbalManagerFlagRollLock | GimbalManagerFlagPitchLock | GimbalManagerFlagYawInVehicleFrame)
	if cmd.p5 != wantFlags {
		t.Fatalf("expected flags %v, got %v", wantFlags, cmd.p5)
	}
	if cmd.p7 != float64(pair.DeviceID) {
		t.Fatalf("expected device id %d in p7, got %v", pair.DeviceID, cmd.p7)
	}
}

func TestContestedControlRefusesWithNoOutboundFrame(t *testing.T) {
	c, link, _ := newTestController()
	pair := GimbalPairId{ManagerCompID: 154, DeviceID: 1}
	completeDiscovery(t, c, pair)

	// Someone else holds control: pointing must refuse outright, no configure
	// attempt and no pitchyaw command.
	c.HandleGimbalManagerStatus(GimbalManagerStatus{CompID: 154, DeviceID: 1, PrimarySysID: 9, PrimaryCompID: 9})

	if err := c.SendPitchBodyYaw(10, 20); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link.commandCount(MAVCmdDoGimbalManagerConfigure) != 0 {
		t.Fatalf("expected no configure command while contested, got %d", link.commandCount(MAVCmdDoGimbalManagerConfigure))
	}
	if link.commandCount(MAVCmdDoGimbalManagerPitchYaw) != 0 {
		t.Fatalf("expected no pitchyaw command while contested, got %d", link.commandCount(MAVCmdDoGimbalManagerPitchYaw))
	}
}

func TestSendPitchAbsoluteYawUsesPitchYawCommand(t *testing.T) {
	c, link, _ := newTestController()
	pair := GimbalPairId{ManagerCompID: 154, DeviceID: 1}
	completeDiscovery(t, c, pair)
	c.HandleGimbalManagerStatus(GimbalManagerStatus{CompID: 154, DeviceID: 1, PrimarySysID: 1, PrimaryCompID: 1})

	if err := c.SendPitchAbsoluteYaw(30, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cmd, ok := link.lastCommand(MAVCmdDoGimbalManagerPitchYaw)
	if !ok {
		t.Fatalf("expected a DO_GIMBAL_MANAGER_PITCHYAW command")
	}
	if cmd.p1 != 30 || cmd.p2 != 0 {
		t.Fatalf("expected pitch=30 yaw=0, got p1=%v p2=%v", cmd.p1, cmd.p2)
	}
	wantFlags := float64(GimbalManagerFlagRollLock | GimbalManagerFlagPitchLock | GimbalManagerFlagYawLock | GimbalManagerFlagYawInEarthFrame)
	if cmd.p5 != wantFlags {
		t.Fatalf("expected flags %v, got %v", wantFlags, cmd.p5)
	}
}

func TestSendRateUsesPitchYawCommandWithRatesInP3P4(t *testing.T) {
	c, link, _ := newTestController()
	pair := GimbalPairId{ManagerCompID: 154, DeviceID: 1}
	completeDiscovery(t, c, pair)
	c.HandleGimbalManagerStatus(GimbalManagerStatus{CompID: 154, DeviceID: 1, PrimarySysID: 1, PrimaryCompID: 1})

	if err := c.SendRate(30, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cmd, ok := link.lastCommand(MAVCmdDoGimbalManagerPitchYaw)
	if !ok {
		t.Fatalf("expected a DO_GIMBAL_MANAGER_PITCHYAW command")
	}
	if cmd.p3 != 30 || cmd.p4 != 0 {
		t.Fatalf("expected pitch_rate=30 yaw_rate=0, got p3=%v p4=%v", cmd.p3, cmd.p4)
	}
}

func TestSendRateThenStopClearsTimer(t *testing.T) {
	c, _, _ := newTestController()
	pair := GimbalPairId{ManagerCompID: 154, DeviceID: 1}
	completeDiscovery(t, c, pair)
	c.HandleGimbalManagerStatus(GimbalManagerStatus{CompID: 154, DeviceID: 1, PrimarySysID: 1, PrimaryCompID: 1})

	if err := c.SendRate(5, -5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.mu.Lock()
	if c.rateTimer == nil {
		c.mu.Unlock()
		t.Fatalf("expected rate timer armed after SendRate")
	}
	c.mu.Unlock()

	if err := c.StopRate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rateTimer != nil {
		t.Fatalf("expected rate timer disarmed after StopRate")
	}
	record := c.records[pair]
	if record.PitchRate != 0 || record.YawRate != 0 {
		t.Fatalf("expected rates zeroed after StopRate, got %+v", record)
	}
}

func TestNoActiveGimbalErrors(t *testing.T) {
	c, _, _ := newTestController()
	if err := c.SendPitchBodyYaw(1, 1); err != ErrNoActiveGimbal {
		t.Fatalf("expected ErrNoActiveGimbal, got %v", err)
	}
	if err := c.AcquireGimbalControl(); err != ErrNoActiveGimbal {
		t.Fatalf("expected ErrNoActiveGimbal, got %v", err)
	}
}

func TestJoystickProducerDoesNotBlockWhenQueueFull(t *testing.T) {
	c, _, _ := newTestController()
	for i := 0; i < joystickSampleQueueSize+4; i++ {
		c.ProcessJoystickGimbalInput([]float64{0.5, -0.5})
	}
	// No deadlock / panic is the assertion; queue should be capped.
	if len(c.joystickSamples) > joystickSampleQueueSize {
		t.Fatalf("expected queue capped at %d, got %d", joystickSampleQueueSize, len(c.joystickSamples))
	}
}

func TestJoystickSampleShapesAndArmsSendTimer(t *testing.T) {
	c, _, _ := newTestController()
	pair := GimbalPairId{ManagerCompID: 154, DeviceID: 1}
	completeDiscovery(t, c, pair)
	c.HandleGimbalManagerStatus(GimbalManagerStatus{CompID: 154, DeviceID: 1, PrimarySysID: 1, PrimaryCompID: 1})

	c.handleJoystickSample([]float64{0.8, 0.8})

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.joystickActive {
		t.Fatalf("expected joystick marked active after a large sample")
	}
	if c.joystickSendTimer == nil {
		t.Fatalf("expected joystick send timer armed")
	}
}

func TestJoystickSenderEmitsDeviceAttitudeWithSignInversion(t *testing.T) {
	c, link, settings := newTestController()
	pair := GimbalPairId{ManagerCompID: 154, DeviceID: 1}
	completeDiscovery(t, c, pair)
	c.HandleGimbalManagerStatus(GimbalManagerStatus{CompID: 154, DeviceID: 1, PrimarySysID: 1, PrimaryCompID: 1})

	c.mu.Lock()
	c.joystickPitchInput = 0.1
	c.joystickYawInput = 0.2
	c.joystickSendTimer = time.AfterFunc(time.Hour, func() {})
	c.mu.Unlock()

	c.joystickSendTimerFired()

	c.mu.Lock()
	c.stopJoystickSendTimerLocked()
	c.mu.Unlock()

	msg := link.lastMessage()
	attitude, ok := msg.(GimbalDeviceSetAttitude)
	if !ok {
		t.Fatalf("expected GIMBAL_DEVICE_SET_ATTITUDE, got %T", msg)
	}
	wantFlags := uint32(GimbalDeviceFlagRollLock | GimbalDeviceFlagPitchLock | GimbalDeviceFlagYawInVehicleFrame)
	if attitude.Flags != wantFlags {
		t.Fatalf("expected flags %v, got %v", wantFlags, attitude.Flags)
	}

	smoothedPitch := 0.5 * 0.1 // EMA(0, pitchInput=0.1, alpha=0.5)
	smoothedYaw := 0.5 * 0.2   // EMA(0, yawInput=0.2, alpha=0.5)
	wantPitchDeg := -smoothedPitch * settings.pitchLimit
	wantYawDeg := smoothedYaw * settings.yawLimit

	q := shaping.Quaternion{W: attitude.Q[0], X: attitude.Q[1], Y: attitude.Q[2], Z: attitude.Q[3]}
	_, gotPitchRad, gotYawRad := shaping.QuatToEuler(q)
	gotPitchDeg, gotYawDeg := shaping.RadToDeg(gotPitchRad), shaping.RadToDeg(gotYawRad)

	const eps = 1e-6
	if absFloat(gotPitchDeg-wantPitchDeg) > eps {
		t.Fatalf("expected pitch_deg=%.6f (sign-inverted), got %.6f", wantPitchDeg, gotPitchDeg)
	}
	if absFloat(gotYawDeg-wantYawDeg) > eps {
		t.Fatalf("expected yaw_deg=%.6f, got %.6f", wantYawDeg, gotYawDeg)
	}
}

func TestJoystickDisabledIgnoresInput(t *testing.T) {
	c, _, settings := newTestController()
	settings.joystickEnabled = false
	c.ProcessJoystickGimbalInput([]float64{1, 1})
	if len(c.joystickSamples) != 0 {
		t.Fatalf("expected no samples enqueued while joystick disabled")
	}
}

func TestMessageLogRecordsSentAttitude(t *testing.T) {
	c, _, _ := newTestController()
	pair := GimbalPairId{ManagerCompID: 154, DeviceID: 1}
	completeDiscovery(t, c, pair)
	c.HandleGimbalManagerStatus(GimbalManagerStatus{CompID: 154, DeviceID: 1, PrimarySysID: 1, PrimaryCompID: 1})

	if err := c.SendPitchBodyYaw(5, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries := c.MessageLog()
	if len(entries) == 0 {
		t.Fatalf("expected a log entry after sending an attitude command")
	}
}

func TestMessageLogAppendSignalsChanged(t *testing.T) {
	c, _, _ := newTestController()
	pair := GimbalPairId{ManagerCompID: 154, DeviceID: 1}
	completeDiscovery(t, c, pair)
	c.HandleGimbalManagerStatus(GimbalManagerStatus{CompID: 154, DeviceID: 1, PrimarySysID: 1, PrimaryCompID: 1})

	if err := c.SendPitchBodyYaw(5, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-c.Signals.GimbalMessageLogChanged:
	default:
		t.Fatalf("expected GimbalMessageLogChanged signal after logging an outbound attitude command")
	}
}

func TestAttitudeStatusDeviceIDZeroReverseLooksUpByCompID(t *testing.T) {
	c, _, _ := newTestController()
	pair := GimbalPairId{ManagerCompID: 99, DeviceID: 7}
	c.HandleHeartbeat(Heartbeat{CompID: pair.ManagerCompID})
	c.HandleGimbalManagerInformation(GimbalManagerInformation{CompID: pair.ManagerCompID, DeviceID: pair.DeviceID})
	c.HandleGimbalManagerStatus(GimbalManagerStatus{CompID: pair.ManagerCompID, DeviceID: pair.DeviceID})

	// The device reports its own status using its own compid (7) and
	// device_id_field 0; the pair must resolve by reverse lookup onto the
	// existing device-id-7 record rather than creating one under compid 7.
	c.HandleGimbalDeviceAttitudeStatus(GimbalDeviceAttitudeStatus{CompID: 7, DeviceIDField: 0, Q: [4]float64{1, 0, 0, 0}})

	record, ok := c.Record(pair)
	if !ok || !record.ReceivedDeviceAttitudeStatus {
		t.Fatalf("expected attitude status resolved onto the existing pair, got %+v ok=%v", record, ok)
	}
	if _, ok := c.Record(GimbalPairId{ManagerCompID: 7, DeviceID: 7}); ok {
		t.Fatalf("expected no bogus record created under the reporting compid")
	}
}

func TestAttitudeStatusDeviceIDAboveSixDropped(t *testing.T) {
	c, _, _ := newTestController()
	before := len(c.records)
	c.HandleGimbalDeviceAttitudeStatus(GimbalDeviceAttitudeStatus{CompID: 40, DeviceIDField: 7, Q: [4]float64{1, 0, 0, 0}})
	if len(c.records) != before {
		t.Fatalf("expected device_id_field > 6 to be dropped without creating a record")
	}
}

func TestAttitudeStatusVehicleFrameYaw(t *testing.T) {
	c, link, _ := newTestController()
	link.headingDeg = 90
	pair := GimbalPairId{ManagerCompID: 154, DeviceID: 1}
	c.HandleHeartbeat(Heartbeat{CompID: pair.ManagerCompID})
	c.HandleGimbalManagerInformation(GimbalManagerInformation{CompID: pair.ManagerCompID, DeviceID: pair.DeviceID})
	c.HandleGimbalManagerStatus(GimbalManagerStatus{CompID: pair.ManagerCompID, DeviceID: pair.DeviceID})

	c.HandleGimbalDeviceAttitudeStatus(GimbalDeviceAttitudeStatus{
		CompID: pair.ManagerCompID, DeviceIDField: pair.DeviceID,
		Flags: GimbalDeviceFlagYawInVehicleFrame, Q: [4]float64{1, 0, 0, 0},
	})

	record, _ := c.Record(pair)
	if record.BodyYaw != 0 || record.AbsoluteYaw != 90 {
		t.Fatalf("expected body_yaw=0 absolute_yaw=90, got body=%v absolute=%v", record.BodyYaw, record.AbsoluteYaw)
	}
}
