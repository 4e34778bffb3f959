package store

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hitoshi/glowguard/internal/model"
)

// Selection はアップロード画面で選択され、検証済みの画像ファイル。
type Selection struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Size はファイルサイズ（バイト）を返す。
func (s *Selection) Size() int64 {
	return int64(len(s.Data))
}

// Client は1つのブラウザに対応するクライアント状態。
// ブラウザのタブが持つメモリ上の状態に相当し、トークンのみが永続化される。
type Client struct {
	ID          string
	Session     *SessionStore
	Predictions *PredictionStore

	loading atomic.Int32 // 処理中のSubmitの数

	mu        sync.Mutex
	selection *Selection
	notices   []model.Notice
	lastSeen  time.Time
}

// newClient はClientを生成する。
func newClient(id string, session *SessionStore, now time.Time) *Client {
	return &Client{
		ID:          id,
		Session:     session,
		Predictions: NewPredictionStore(),
		lastSeen:    now,
	}
}

// Select はアップロード対象の画像を保持する。
func (c *Client) Select(sel *Selection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = sel
}

// Selection は保持している画像を返す。未選択の場合はnil。
func (c *Client) Selection() *Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

// ClearSelection は選択中の画像を破棄する。
func (c *Client) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = nil
}

// BeginLoading はローディングフラグを立て、フラグを下ろす関数を返す。
// 呼び出し側はdeferで返り値を呼び、結果に関わらず必ずフラグを下ろす。
// 処理が重なった場合は最後の処理が終わるまでフラグを立てたままにする。
func (c *Client) BeginLoading() (done func()) {
	c.loading.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { c.loading.Add(-1) })
	}
}

// Loading は処理中かどうかを返す。
func (c *Client) Loading() bool {
	return c.loading.Load() > 0
}

// Notify は次の画面表示で一度だけ表示する通知を追加する。
func (c *Client) Notify(n model.Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, n)
}

// TakeNotices は未表示の通知を取り出し、キューを空にする。
func (c *Client) TakeNotices() []model.Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.notices
	c.notices = nil
	return out
}

func (c *Client) touch(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSeen = now
}

func (c *Client) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}
