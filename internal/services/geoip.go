package services

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/ian-seymour/gamma/internal/config"

	"github.com/go-co-op/gocron"
	"github.com/oschwald/geoip2-golang"
	"github.com/oschwald/maxminddb-golang"
)

type geoIPReader interface {
	City(ip net.IP) (*geoip2.City, error)
	Metadata() maxminddb.Metadata
	Close() error
}

// GeoLocation is the approximate position of a client address.
type GeoLocation struct {
	City      string
	Region    string
	Country   string
	Latitude  float64
	Longitude float64
}

// GeoIPService locates clients so the dashboard can open on a nearby city.
// Without MaxMind credentials it stays disabled and every lookup misses.
type GeoIPService struct {
	cfg       config.Config
	logger    *slog.Logger
	geoReader geoIPReader
	geoLock   sync.RWMutex
}

func NewGeoIPService(cfg config.Config, logger *slog.Logger) *GeoIPService {
	return &GeoIPService{
		cfg:    cfg,
		logger: logger,
	}
}

func (s *GeoIPService) enabled() bool {
	return s.cfg.MaxMindAccountID != "" && s.cfg.MaxMindLicenseKey != ""
}

func (s *GeoIPService) Init() {
	if !s.enabled() {
		s.logger.Warn("GeoIP: MaxMind credentials not set. Default location will be used.")
		return
	}

	dbPath := s.cfg.MaxMindDBPath
	dbDir := filepath.Dir(dbPath)

	if err := os.MkdirAll(dbDir, 0755); err != nil {
		s.logger.Error("GeoIP: Failed to create directory", "dir", dbDir, "error", err)
		return
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		s.logger.Info("GeoIP: Database missing, downloading...")
		if err := s.updateGeoDB(); err != nil {
			s.logger.Error("GeoIP: Initial download failed", "error", err)
		}
	}

	s.reloadReader(dbPath)
}

// StartUpdater refreshes the database once a day until ctx is cancelled.
func (s *GeoIPService) StartUpdater(ctx context.Context) {
	s.StartUpdaterWithInterval(ctx, 24*time.Hour)
}

func (s *GeoIPService) StartUpdaterWithInterval(ctx context.Context, interval time.Duration) {
	if !s.enabled() {
		return
	}

	scheduler := gocron.NewScheduler(time.UTC)
	_, err := scheduler.Every(interval).WaitForSchedule().Do(func() {
		s.logger.Info("GeoIP: Running scheduled update...")
		if err := s.updateGeoDB(); err != nil {
			s.logger.Error("GeoIP: Update failed", "error", err)
			return
		}
		s.reloadReader(s.cfg.MaxMindDBPath)
	})
	if err != nil {
		s.logger.Error("GeoIP: Failed to schedule updater", "error", err)
		return
	}

	scheduler.StartAsync()
	<-ctx.Done()
	scheduler.Stop()
	s.logger.Info("GeoIP: Updater stopping")
}

func (s *GeoIPService) updateGeoDB() error {
	dbDir := filepath.Dir(s.cfg.MaxMindDBPath)
	confPath := filepath.Join(dbDir, "GeoIP.conf")

	content := fmt.Sprintf("AccountID %s\nLicenseKey %s\nEditionIDs %s\nDatabaseDirectory %s\n",
		s.cfg.MaxMindAccountID, s.cfg.MaxMindLicenseKey, s.cfg.MaxMindEditionIDs, dbDir)

	if err := os.WriteFile(confPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write GeoIP.conf: %w", err)
	}
	defer os.Remove(confPath)

	cmd := exec.Command("geoipupdate", "-v", "-f", confPath, "-d", dbDir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("geoipupdate failed: %w, output: %s", err, string(output))
	}

	s.logger.Info("GeoIP: Database updated successfully")
	return nil
}

func (s *GeoIPService) reloadReader(path string) {
	s.geoLock.Lock()
	defer s.geoLock.Unlock()

	if s.geoReader != nil {
		s.geoReader.Close()
		s.geoReader = nil
	}

	reader, err := geoip2.Open(path)
	if err != nil {
		s.logger.Error("GeoIP: Failed to open database", "path", path, "error", err)
		return
	}
	s.geoReader = reader

	meta := reader.Metadata()
	s.logger.Info("GeoIP: Loaded database", "epoch", meta.BuildEpoch)
}

// Locate reports where ipStr appears to be. Loopback and private addresses,
// unparsable input and records without a city never match.
func (s *GeoIPService) Locate(ipStr string) (GeoLocation, bool) {
	ip := net.ParseIP(ipStr)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
		return GeoLocation{}, false
	}

	s.geoLock.RLock()
	reader := s.geoReader
	s.geoLock.RUnlock()

	if reader == nil {
		return GeoLocation{}, false
	}

	record, err := reader.City(ip)
	if err != nil {
		s.logger.Error("GeoIP: Lookup error", "ip", ipStr, "error", err)
		return GeoLocation{}, false
	}

	loc := GeoLocation{
		City:      record.City.Names["en"],
		Latitude:  record.Location.Latitude,
		Longitude: record.Location.Longitude,
	}
	if name, ok := record.Country.Names["en"]; ok {
		loc.Country = name
	} else {
		loc.Country = record.Country.IsoCode
	}
	if len(record.Subdivisions) > 0 {
		loc.Region = record.Subdivisions[0].Names["en"]
	}

	if loc.City == "" || (loc.Latitude == 0 && loc.Longitude == 0) {
		return GeoLocation{}, false
	}
	return loc, true
}
