package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"watersafe/internal/alert"
	"watersafe/internal/models"
	"watersafe/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ============================================
// 测试替身
// ============================================

type fakeRepo struct {
	mu        sync.Mutex
	readings  []models.Reading
	createErr error
}

func (f *fakeRepo) CreateReading(ctx context.Context, reading *models.Reading) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readings = append(f.readings, *reading)
	return nil
}

func (f *fakeRepo) GetLatestReading(ctx context.Context) (*models.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.readings) == 0 {
		return nil, repository.ErrNotFound
	}
	latest := f.readings[len(f.readings)-1]
	return &latest, nil
}

func (f *fakeRepo) GetLatestByColumn(ctx context.Context, column string) (float64, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.readings) == 0 {
		return 0, time.Time{}, repository.ErrNotFound
	}
	latest := f.readings[len(f.readings)-1]
	switch column {
	case "ph":
		return latest.PH, latest.Timestamp, nil
	case "temp":
		return latest.Temp, latest.Timestamp, nil
	case "turb":
		return latest.Turb, latest.Timestamp, nil
	case "tds":
		return latest.TDS, latest.Timestamp, nil
	case "dissolved_oxygen":
		return latest.DO, latest.Timestamp, nil
	}
	return 0, time.Time{}, errors.New("unknown column")
}

func (f *fakeRepo) ListReadings(ctx context.Context, limit int) ([]models.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Reading{}
	for i := len(f.readings) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.readings[i])
	}
	return out, nil
}

func (f *fakeRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.readings)
}

type fakeNotifier struct {
	mu            sync.Mutex
	contamination int
	quality       int
}

func (f *fakeNotifier) SendContaminationAlert(r *models.Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contamination++
}

func (f *fakeNotifier) SendQualityAlert(r *models.Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quality++
}

func (f *fakeNotifier) contaminationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contamination
}

func (f *fakeNotifier) qualityCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quality
}

func newTestService(repo *fakeRepo, notif *fakeNotifier, cooldown time.Duration) (*SensorService, *alert.Debouncer) {
	d := alert.NewDebouncer(cooldown, zap.NewNop())
	svc := NewSensorService(repo, nil, d, notif, notif, 100, zap.NewNop())
	return svc, d
}

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func validRequest() *SubmitReadingRequest {
	return &SubmitReadingRequest{
		User: "esp32-01",
		PH:   floatPtr(7.2),
		Temp: floatPtr(24.5),
		Turb: floatPtr(1.8),
		TDS:  floatPtr(320),
		DO:   floatPtr(7.1),
	}
}

func unsafeRequest() *SubmitReadingRequest {
	req := validRequest()
	req.PH = floatPtr(5.0)
	return req
}

// ============================================
// 入库编排
// ============================================

func TestSubmitReading_MissingField_NothingPersisted(t *testing.T) {
	fields := []func(*SubmitReadingRequest){
		func(r *SubmitReadingRequest) { r.PH = nil },
		func(r *SubmitReadingRequest) { r.Temp = nil },
		func(r *SubmitReadingRequest) { r.Turb = nil },
		func(r *SubmitReadingRequest) { r.TDS = nil },
		func(r *SubmitReadingRequest) { r.DO = nil },
	}

	for _, clear := range fields {
		repo := &fakeRepo{}
		notif := &fakeNotifier{}
		svc, d := newTestService(repo, notif, time.Minute)
		defer d.Stop()

		req := validRequest()
		clear(req)

		reading, err := svc.SubmitReading(context.Background(), req)

		assert.True(t, errors.Is(err, ErrIncompleteData))
		assert.Nil(t, reading)
		assert.Equal(t, 0, repo.count())
	}
}

func TestSubmitReading_Valid_PersistedVerbatim(t *testing.T) {
	repo := &fakeRepo{}
	notif := &fakeNotifier{}
	svc, d := newTestService(repo, notif, time.Minute)
	defer d.Stop()

	req := validRequest()
	req.Alert = boolPtr(true)

	reading, err := svc.SubmitReading(context.Background(), req)

	require.NoError(t, err)
	require.NotNil(t, reading)
	assert.NotEmpty(t, reading.ID)
	assert.Equal(t, "esp32-01", reading.User)
	assert.Equal(t, 7.2, reading.PH)
	assert.Equal(t, 24.5, reading.Temp)
	assert.Equal(t, 1.8, reading.Turb)
	assert.Equal(t, 320.0, reading.TDS)
	assert.Equal(t, 7.1, reading.DO)
	assert.True(t, reading.Alert)
	assert.False(t, reading.Timestamp.IsZero())
	assert.Equal(t, 1, repo.count())
}

func TestSubmitReading_PersistenceFailure(t *testing.T) {
	repo := &fakeRepo{createErr: errors.New("connection refused")}
	notif := &fakeNotifier{}
	svc, d := newTestService(repo, notif, time.Minute)
	defer d.Stop()

	reading, err := svc.SubmitReading(context.Background(), unsafeRequest())

	assert.Error(t, err)
	assert.Nil(t, reading)
	// 落库失败不触发任何报警
	assert.Equal(t, 0, notif.contaminationCount())
}

func TestSubmitReading_SafeReading_NoAlert(t *testing.T) {
	repo := &fakeRepo{}
	notif := &fakeNotifier{}
	svc, d := newTestService(repo, notif, time.Minute)
	defer d.Stop()

	_, err := svc.SubmitReading(context.Background(), validRequest())

	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond) // 等待可能的异步投递
	assert.Equal(t, 0, notif.contaminationCount())
	assert.Equal(t, 0, notif.qualityCount())
}

func TestSubmitReading_Unsafe_DispatchesOnce(t *testing.T) {
	repo := &fakeRepo{}
	notif := &fakeNotifier{}
	svc, d := newTestService(repo, notif, time.Minute)
	defer d.Stop()

	_, err := svc.SubmitReading(context.Background(), unsafeRequest())
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return notif.contaminationCount() == 1 },
		time.Second, 5*time.Millisecond)
}

func TestSubmitReading_DebounceProperty_ConcurrentUnsafe(t *testing.T) {
	repo := &fakeRepo{}
	notif := &fakeNotifier{}
	svc, d := newTestService(repo, notif, time.Minute)
	defer d.Stop()

	// 冷却窗口内的 N 条并发不安全读数至多触发一次投递
	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SubmitReading(context.Background(), unsafeRequest())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Eventually(t, func() bool { return notif.contaminationCount() == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, n, repo.count())

	// 窗口内不会出现第二次
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, notif.contaminationCount())
}

func TestSubmitReading_DispatchAgainAfterCooldown(t *testing.T) {
	repo := &fakeRepo{}
	notif := &fakeNotifier{}
	svc, d := newTestService(repo, notif, 40*time.Millisecond)
	defer d.Stop()

	_, err := svc.SubmitReading(context.Background(), unsafeRequest())
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return notif.contaminationCount() == 1 },
		time.Second, 5*time.Millisecond)

	// 冷却到期后，下一条不安全读数触发自己的投递
	time.Sleep(60 * time.Millisecond)
	_, err = svc.SubmitReading(context.Background(), unsafeRequest())
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return notif.contaminationCount() == 2 },
		time.Second, 5*time.Millisecond)
}

func TestSubmitReading_ManualAlertPath_IndependentOfDebounce(t *testing.T) {
	repo := &fakeRepo{}
	notif := &fakeNotifier{}
	svc, d := newTestService(repo, notif, time.Minute)
	defer d.Stop()

	// alert=true 且阈值不安全：两条路径同时触发
	req := unsafeRequest()
	req.Alert = boolPtr(true)
	_, err := svc.SubmitReading(context.Background(), req)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return notif.contaminationCount() == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, notif.qualityCount())

	// 去抖冷却中，但显式 alert 路径照常投递
	req2 := unsafeRequest()
	req2.Alert = boolPtr(true)
	_, err = svc.SubmitReading(context.Background(), req2)
	require.NoError(t, err)

	assert.Equal(t, 2, notif.qualityCount())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, notif.contaminationCount())
}

func TestSubmitReading_AlertFalse_NoManualDispatch(t *testing.T) {
	repo := &fakeRepo{}
	notif := &fakeNotifier{}
	svc, d := newTestService(repo, notif, time.Minute)
	defer d.Stop()

	req := validRequest()
	req.Alert = boolPtr(false)
	_, err := svc.SubmitReading(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 0, notif.qualityCount())
}

// ============================================
// 只读查询
// ============================================

func TestLatestByPin_InvalidPin(t *testing.T) {
	svc, d := newTestService(&fakeRepo{}, &fakeNotifier{}, time.Minute)
	defer d.Stop()

	pv, err := svc.LatestByPin(context.Background(), "v9")

	assert.True(t, errors.Is(err, ErrInvalidChannel))
	assert.Nil(t, pv)
}

func TestLatestByPin_NoData(t *testing.T) {
	svc, d := newTestService(&fakeRepo{}, &fakeNotifier{}, time.Minute)
	defer d.Stop()

	pv, err := svc.LatestByPin(context.Background(), "v3")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Nil(t, pv)
}

func TestLatestByPin_Turbidity(t *testing.T) {
	repo := &fakeRepo{}
	svc, d := newTestService(repo, &fakeNotifier{}, time.Minute)
	defer d.Stop()

	req := validRequest()
	req.Turb = floatPtr(4.2)
	reading, err := svc.SubmitReading(context.Background(), req)
	require.NoError(t, err)

	pv, err := svc.LatestByPin(context.Background(), "v3")

	require.NoError(t, err)
	assert.Equal(t, "v3", pv.Pin)
	assert.Equal(t, 4.2, pv.Value)
	assert.True(t, reading.Timestamp.Equal(pv.Timestamp))
}

func TestLatestWithStatus_EmptyStore(t *testing.T) {
	svc, d := newTestService(&fakeRepo{}, &fakeNotifier{}, time.Minute)
	defer d.Stop()

	rs, err := svc.LatestWithStatus(context.Background())

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Nil(t, rs)
}

func TestLatestWithStatus_ComputesLabel(t *testing.T) {
	repo := &fakeRepo{}
	svc, d := newTestService(repo, &fakeNotifier{}, time.Minute)
	defer d.Stop()

	_, err := svc.SubmitReading(context.Background(), validRequest())
	require.NoError(t, err)

	rs, err := svc.LatestWithStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Safe", rs.Status)
	assert.Equal(t, 7.2, rs.PH)

	// 看板阈值用的是自己的温度区间（20-35），temp=18 为 Unsafe
	req := validRequest()
	req.Temp = floatPtr(18)
	_, err = svc.SubmitReading(context.Background(), req)
	require.NoError(t, err)

	rs, err = svc.LatestWithStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Unsafe", rs.Status)
}

func TestHistory_LimitAndOrder(t *testing.T) {
	repo := &fakeRepo{}
	notif := &fakeNotifier{}
	d := alert.NewDebouncer(time.Minute, zap.NewNop())
	defer d.Stop()
	svc := NewSensorService(repo, nil, d, notif, notif, 100, zap.NewNop())

	// 直接向仓库塞 101 条时间递增的读数
	base := time.Now().UTC()
	for i := 0; i <= 100; i++ {
		repo.readings = append(repo.readings, models.Reading{
			ID:        "r",
			PH:        float64(i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
	}

	history, err := svc.History(context.Background())

	require.NoError(t, err)
	require.Len(t, history, 100)
	// 最新在前，最老的那条（i=0）被截掉
	assert.Equal(t, 100.0, history[0].PH)
	assert.Equal(t, 1.0, history[99].PH)
	for i := 1; i < len(history); i++ {
		assert.True(t, history[i-1].Timestamp.After(history[i].Timestamp))
	}
}

func TestHistory_EmptyStore(t *testing.T) {
	svc, d := newTestService(&fakeRepo{}, &fakeNotifier{}, time.Minute)
	defer d.Stop()

	history, err := svc.History(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}
