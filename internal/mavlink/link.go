// Package mavlink decodes a MAVLink v2 telemetry stream off a serial port
// into the rescue package's GPS/attitude/altitude/accel source interfaces.
// It is a read-only consumer: rescue never sends MAVLink commands, it only
// ever reads GPS_RAW_INT, GLOBAL_POSITION_INT, ATTITUDE, and RAW_IMU.
package mavlink

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Message IDs this package decodes, mirroring actuators.MAVLinkProtocol's
// constant table.
const (
	msgIDHeartbeat          = 0
	msgIDAttitude           = 30
	msgIDGlobalPositionInt  = 33
	msgIDGPSRawInt          = 24
	msgIDRawIMU             = 27
)

const v2Magic = 0xFD

// crcExtra holds the MAVLink v2 CRC_EXTRA byte per message, same simplified
// table approach as actuators.MAVLinkProtocol.getCrcExtra.
var crcExtra = map[uint32]uint8{
	msgIDHeartbeat:         50,
	msgIDAttitude:          39,
	msgIDGlobalPositionInt: 104,
	msgIDGPSRawInt:         24,
	msgIDRawIMU:            144,
}

// Link decodes a MAVLink stream into the live GPS/attitude/altitude/accel
// readings rescue.Collaborators needs. It never writes to the port.
type Link struct {
	mu sync.RWMutex

	port serial.Port

	// Latest decoded values.
	homeSet        bool
	homeLatE7      int32
	homeLonE7      int32
	latE7, lonE7   int32
	relAltMM       int32
	vxCmS, vyCmS   int16
	hdgCentiDeg    uint16
	fixType        uint8
	satsVisible    uint8

	rollRad, pitchRad, yawRad float32
	axMG, ayMG, azMG          int16

	newGPS    bool
	lastFix   time.Time
	gotFix    bool
}

// Open opens portName at baudRate and starts the background read loop.
func Open(portName string, baudRate int) (*Link, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("mavlink: open serial port %s: %w", portName, err)
	}

	l := &Link{port: port}
	go l.readLoop()
	return l, nil
}

// Close stops reading and closes the serial port.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.port == nil {
		return nil
	}
	err := l.port.Close()
	l.port = nil
	return err
}

func (l *Link) readLoop() {
	for {
		l.mu.RLock()
		port := l.port
		l.mu.RUnlock()
		if port == nil {
			return
		}

		port.SetReadTimeout(500 * time.Millisecond)
		id, payload, err := readMessage(port)
		if err != nil {
			continue
		}
		l.decode(id, payload)
	}
}

// readMessage reads one MAVLink v2 frame, validating its CRC, and returns
// the message ID and payload.
func readMessage(r io.Reader) (uint32, []byte, error) {
	magic := make([]byte, 1)
	if _, err := io.ReadFull(r, magic); err != nil {
		return 0, nil, err
	}
	if magic[0] != v2Magic {
		return 0, nil, fmt.Errorf("mavlink: bad magic 0x%02x", magic[0])
	}

	header := make([]byte, 9)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}
	length := header[0]
	msgID := uint32(header[6]) | uint32(header[7])<<8 | uint32(header[8])<<16

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}

	checksum := make([]byte, 2)
	if _, err := io.ReadFull(r, checksum); err != nil {
		return 0, nil, err
	}

	crc := crcAccumulate(0xFFFF, []byte{header[0], header[1], header[2], header[3], header[4], header[5]})
	crc = crcAccumulate(crc, header[6:9])
	crc = crcAccumulate(crc, payload)
	crc = crcAccumulate(crc, []byte{crcExtra[msgID]})
	got := uint16(checksum[0]) | uint16(checksum[1])<<8
	if crc != got {
		return 0, nil, fmt.Errorf("mavlink: checksum mismatch for msg %d", msgID)
	}

	return msgID, payload, nil
}

func (l *Link) decode(id uint32, payload []byte) {
	switch id {
	case msgIDGlobalPositionInt:
		if len(payload) < 28 {
			return
		}
		l.mu.Lock()
		l.latE7 = int32(binary.LittleEndian.Uint32(payload[4:8]))
		l.lonE7 = int32(binary.LittleEndian.Uint32(payload[8:12]))
		l.relAltMM = int32(binary.LittleEndian.Uint32(payload[16:20]))
		l.vxCmS = int16(binary.LittleEndian.Uint16(payload[20:22]))
		l.vyCmS = int16(binary.LittleEndian.Uint16(payload[22:24]))
		l.hdgCentiDeg = binary.LittleEndian.Uint16(payload[26:28])
		if !l.homeSet {
			l.homeLatE7, l.homeLonE7 = l.latE7, l.lonE7
			l.homeSet = true
		}
		l.newGPS = true
		l.lastFix = time.Now()
		l.mu.Unlock()

	case msgIDGPSRawInt:
		if len(payload) < 30 {
			return
		}
		l.mu.Lock()
		l.fixType = payload[28]
		l.satsVisible = payload[29]
		l.gotFix = l.fixType >= 3
		l.mu.Unlock()

	case msgIDAttitude:
		if len(payload) < 28 {
			return
		}
		l.mu.Lock()
		l.rollRad = math.Float32frombits(binary.LittleEndian.Uint32(payload[4:8]))
		l.pitchRad = math.Float32frombits(binary.LittleEndian.Uint32(payload[8:12]))
		l.yawRad = math.Float32frombits(binary.LittleEndian.Uint32(payload[12:16]))
		l.mu.Unlock()

	case msgIDRawIMU:
		if len(payload) < 16 {
			return
		}
		l.mu.Lock()
		l.axMG = int16(binary.LittleEndian.Uint16(payload[8:10]))
		l.ayMG = int16(binary.LittleEndian.Uint16(payload[10:12]))
		l.azMG = int16(binary.LittleEndian.Uint16(payload[12:14]))
		l.mu.Unlock()
	}
}

// --- rescue.GPSSource ---

func (l *Link) Healthy() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.gotFix && time.Since(l.lastFix) < 2*time.Second
}

func (l *Link) HasHomeFix() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.homeSet
}

func (l *Link) Has3DFix() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fixType >= 3
}

func (l *Link) NumSat() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int(l.satsVisible)
}

func (l *Link) DistanceToHomeCm() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return haversineM(l.homeLatE7, l.homeLonE7, l.latE7, l.lonE7) * 100
}

func (l *Link) GroundSpeedCmS() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return math.Hypot(float64(l.vxCmS), float64(l.vyCmS))
}

func (l *Link) DirectionToHomeDeciDeg() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return bearingDeg(l.latE7, l.lonE7, l.homeLatE7, l.homeLonE7) * 10
}

func (l *Link) NewGPSData() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.newGPS
}

func (l *Link) ClearNewGPSData() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.newGPS = false
}

// --- rescue.AttitudeSource ---

func (l *Link) YawDeciDeg() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return float64(l.yawRad) * (180 / math.Pi) * 10
}

func (l *Link) CosTilt() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return math.Cos(float64(l.rollRad)) * math.Cos(float64(l.pitchRad))
}

// --- rescue.AltitudeSource ---

func (l *Link) AltitudeCm() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return float64(l.relAltMM) / 10
}

// --- rescue.AccelSource ---

func (l *Link) AccelG() (ax, ay, az float64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return float64(l.axMG) / 1000, float64(l.ayMG) / 1000, float64(l.azMG) / 1000
}

// haversineM returns the great-circle distance in meters between two
// lat/lon*1e7 points.
func haversineM(lat1E7, lon1E7, lat2E7, lon2E7 int32) float64 {
	const earthRadiusM = 6371000.0
	lat1 := float64(lat1E7) * 1e-7 * math.Pi / 180
	lat2 := float64(lat2E7) * 1e-7 * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (float64(lon2E7) - float64(lon1E7)) * 1e-7 * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// bearingDeg returns the initial true bearing in degrees [0,360) from point
// 1 to point 2.
func bearingDeg(lat1E7, lon1E7, lat2E7, lon2E7 int32) float64 {
	lat1 := float64(lat1E7) * 1e-7 * math.Pi / 180
	lat2 := float64(lat2E7) * 1e-7 * math.Pi / 180
	dLon := (float64(lon2E7) - float64(lon1E7)) * 1e-7 * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	deg := math.Atan2(y, x) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

// crcAccumulate is the MAVLink X.25 CRC (CRC-16/MCRF4XX), computed with
// MAVLink's own bitwise crc_accumulate step.
func crcAccumulate(crc uint16, data []byte) uint16 {
	for _, b := range data {
		tmp := b ^ uint8(crc&0xff)
		tmp ^= tmp << 4
		crc = (crc >> 8) ^ (uint16(tmp) << 8) ^ (uint16(tmp) << 3) ^ (uint16(tmp) >> 4)
	}
	return crc
}

var crcTable = [256]uint16{
	0x0000, 0x1021, 0x2042, 0x3063, 0x4084, 0x50a5, 0x60c6, 0x70e7,
	0x8108, 0x9129, 0xa14a, 0xb16b, 0xc18c, 0xd1ad, 0xe1ce, 0xf1ef,
	0x1231, 0x0210, 0x3273, 0x2252, 0x52b5, 0x4294, 0x72f7, 0x62d6,
	0x9339, 0x8318, 0xb37b, 0xa35a, 0xd3bd, 0xc39c, 0xf3ff, 0xe3de,
	0x2462, 0x3443, 0x0420, 0x1401, 0x64e6, 0x74c7, 0x44a4, 0x5485,
	0xa56a, 0xb54b, 0x8528, 0x9509, 0xe5ee, 0xf5cf, 0xc5ac, 0xd58d,
	0x3653, 0x2672, 0x1611, 0x0630, 0x76d7, 0x66f6, 0x5695, 0x46b4,
	0xb75b, 0xa77a, 0x9719, 0x8738, 0xf7df, 0xe7fe, 0xd79d, 0xc7bc,
	0x48c4, 0x58e5, 0x6886, 0x78a7, 0x0840, 0x1861, 0x2802, 0x3823,
	0xc9cc, 0xd9ed, 0xe98e, 0xf9af, 0x8948, 0x9969, 0xa90a, 0xb92b,
	0x5af5, 0x4ad4, 0x7ab7, 0x6a96, 0x1a71, 0x0a50, 0x3a33, 0x2a12,
	0xdbfd, 0xcbdc, 0xfbbf, 0xeb9e, 0x9b79, 0x8b58, 0xbb3b, 0xab1a,
	0x6ca6, 0x7c87, 0x4ce4, 0x5cc5, 0x2c22, 0x3c03, 0x0c60, 0x1c41,
	0xedae, 0xfd8f, 0xcdec, 0xddcd, 0xad2a, 0xbd0b, 0x8d68, 0x9d49,
	0x7e97, 0x6eb6, 0x5ed5, 0x4ef4, 0x3e13, 0x2e32, 0x1e51, 0x0e70,
	0xff9f, 0xefbe, 0xdfdd, 0xcffc, 0xbf1b, 0xaf3a, 0x9f59, 0x8f78,
	0x9188, 0x81a9, 0xb1ca, 0xa1eb, 0xd10c, 0xc12d, 0xf14e, 0xe16f,
	0x1080, 0x00a1, 0x30c2, 0x20e3, 0x5004, 0x4025, 0x7046, 0x6067,
	0x83b9, 0x9398, 0xa3fb, 0xb3da, 0xc33d, 0xd31c, 0xe37f, 0xf35e,
	0x02b1, 0x1290, 0x22f3, 0x32d2, 0x4235, 0x5214, 0x6277, 0x7256,
	0xb5ea, 0xa5cb, 0x95a8, 0x8589, 0xf56e, 0xe54f, 0xd52c, 0xc50d,
	0x34e2, 0x24c3, 0x14a0, 0x0481, 0x7466, 0x6447, 0x5424, 0x4405,
	0xa7db, 0xb7fa, 0x8799, 0x97b8, 0xe75f, 0xf77e, 0xc71d, 0xd73c,
	0x26d3, 0x36f2, 0x0691, 0x16b0, 0x6657, 0x7676, 0x4615, 0x5634,
	0xd94c, 0xc96d, 0xf90e, 0xe92f, 0x99c8, 0x89e9, 0xb98a, 0xa9ab,
	0x5844, 0x4865, 0x7806, 0x6827, 0x18c0, 0x08e1, 0x3882, 0x28a3,
	0xcb7d, 0xdb5c, 0xeb3f, 0xfb1e, 0x8bf9, 0x9bd8, 0xabbb, 0xbb9a,
	0x4a75, 0x5a54, 0x6a37, 0x7a16, 0x0af1, 0x1ad0, 0x2ab3, 0x3a92,
	0xfd2e, 0xed0f, 0xdd6c, 0xcd4d, 0xbdaa, 0xad8b, 0x9de8, 0x8dc9,
	0x7c26, 0x6c07, 0x5c64, 0x4c45, 0x3ca2, 0x2c83, 0x1ce0, 0x0cc1,
	0xef1f, 0xff3e, 0xcf5d, 0xdf7c, 0xaf9b, 0xbfba, 0x8fd9, 0x9ff8,
	0x6e17, 0x7e36, 0x4e55, 0x5e74, 0x2e93, 0x3eb2, 0x0ed1, 0x1ef0,
}
