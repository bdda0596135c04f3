// Package session は1回分の作業（アップロード→抽出→編集→印刷）の状態を扱います。
// 各操作は Session の値を受け取り、新しい Session を返します。元の値は変更しません。
package session

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"bakeslip/aggregation"
	"bakeslip/ingest"
	"bakeslip/model"
	"bakeslip/preview"
	"bakeslip/render"
)

// State はセッションの段階です。
type State string

const (
	StateIdle        State = "idle"
	StateFilesQueued State = "files_queued"
	StateProcessing  State = "processing"
	StateOrdersReady State = "orders_ready"
	StatePreviewing  State = "previewing"
)

const (
	// DateLayout は選択日付の入力形式です。
	DateLayout = "2006-01-02"
	// IssueDateLayout は選択日付から作る表示用の発行日です。
	IssueDateLayout = "Mon 02 Jan 2006"

	placeholderRoute   = "New Route"
	placeholderProduct = "New Product"
	reportFilePrefix   = "Order_Report_"
)

var (
	// ErrInvalidOrder は手入力の検証エラーです。セッションは変更されません。
	ErrInvalidOrder = errors.New("invalid order")
	// ErrInvalidTransition は現在の段階では行えない操作です。
	ErrInvalidTransition = errors.New("operation not allowed in current state")
	// ErrInvalidDate は選択日付の形式エラーです。
	ErrInvalidDate = errors.New("invalid date")
	// ErrNoOrders はレポートにする注文がないことを示します。
	ErrNoOrders = errors.New("no orders to report")
)

// QueuedFile は処理待ちのファイルとそのプレビューです。
type QueuedFile struct {
	model.SourceFile
	Preview preview.Handle `json:"preview"`
}

// Session は作業セッションの値です。
type Session struct {
	ID            string          `json:"id"`
	State         State           `json:"state"`
	Files         []QueuedFile    `json:"files"`
	Data          model.OrderData `json:"data"`
	Errors        []string        `json:"errors"`
	GlobalProduct string          `json:"globalProduct"`
	SliceMode     model.SliceMode `json:"sliceMode"`
	SelectedDate  string          `json:"selectedDate"`
	LastBatchID   string          `json:"lastBatchId,omitempty"`
}

// New は空のセッションを作成します。選択日付は today の日付です。
func New(id string, today time.Time, mode model.SliceMode) Session {
	if mode == "" {
		mode = model.SliceDouble
	}
	return Session{
		ID:           id,
		State:        StateIdle,
		Data:         model.OrderData{Orders: []model.Order{}},
		SliceMode:    mode,
		SelectedDate: today.Format(DateLayout),
	}
}

// clone はスライスを共有しない複製を返します。
func (s Session) clone() Session {
	out := s
	out.Files = slices.Clone(s.Files)
	out.Errors = slices.Clone(s.Errors)
	out.Data = s.Data.Clone()
	return out
}

func (s Session) require(op string, states ...State) error {
	if slices.Contains(states, s.State) {
		return nil
	}
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, op, s.State)
}

// Handles はセッションが保持しているプレビューハンドルです。
func (s Session) Handles() []preview.Handle {
	out := make([]preview.Handle, 0, len(s.Files))
	for _, f := range s.Files {
		if f.Preview != "" {
			out = append(out, f.Preview)
		}
	}
	return out
}

// SourceFiles は抽出に渡すファイル一覧です。
func (s Session) SourceFiles() []model.SourceFile {
	out := make([]model.SourceFile, len(s.Files))
	for i, f := range s.Files {
		out[i] = f.SourceFile
	}
	return out
}

// AddFiles はファイルをキューの末尾に追加します。
func (s Session) AddFiles(files ...QueuedFile) (Session, error) {
	if err := s.require("add files", StateIdle, StateFilesQueued); err != nil {
		return s, err
	}
	if len(files) == 0 {
		return s, nil
	}
	next := s.clone()
	next.Files = append(next.Files, files...)
	next.State = StateFilesQueued
	return next, nil
}

// RemoveFile は i 番目のファイルをキューから外します。
func (s Session) RemoveFile(i int) (Session, error) {
	if err := s.require("remove a file", StateFilesQueued); err != nil {
		return s, err
	}
	if i < 0 || i >= len(s.Files) {
		return s, fmt.Errorf("%w: no file at index %d", ErrInvalidTransition, i)
	}
	next := s.clone()
	next.Files = slices.Delete(next.Files, i, i+1)
	if len(next.Files) == 0 {
		next.State = StateIdle
	}
	return next, nil
}

// BeginProcessing はバッチ処理の開始です。
func (s Session) BeginProcessing() (Session, error) {
	if err := s.require("process", StateFilesQueued); err != nil {
		return s, err
	}
	if len(s.Files) == 0 {
		return s, ingest.ErrNoFiles
	}
	next := s.clone()
	next.State = StateProcessing
	next.Errors = nil
	return next, nil
}

// CompleteProcessing はバッチ結果を取り込みます。
// 注文が得られなければファイルを残したまま待機状態に戻ります。
func (s Session) CompleteProcessing(result ingest.BatchResult) (Session, error) {
	if err := s.require("complete processing", StateProcessing); err != nil {
		return s, err
	}
	next := s.clone()
	next.LastBatchID = result.ID

	if !result.HasData() {
		next.State = StateFilesQueued
		if result.NoData() {
			next.Errors = []string{ingest.ErrNoDataExtracted.Error()}
		} else {
			next.Errors = slices.Clone(result.Errors)
		}
		return next, nil
	}

	next.Data = result.Data.Clone()
	next.Errors = slices.Clone(result.Errors)
	next.GlobalProduct = next.Data.Orders[0].Product
	next.State = StateOrdersReady
	return next, nil
}

// FailProcessing はバッチ全体が実行できなかった場合の戻しです。
func (s Session) FailProcessing(err error) (Session, error) {
	if e := s.require("fail processing", StateProcessing); e != nil {
		return s, e
	}
	next := s.clone()
	next.State = StateFilesQueued
	next.Errors = []string{err.Error()}
	return next, nil
}

func (s Session) orderAt(i int) error {
	if i < 0 || i >= len(s.Data.Orders) {
		return fmt.Errorf("%w: no order at index %d", ErrInvalidOrder, i)
	}
	return nil
}

// parseTrays は手入力のトレイ数を厳密に整数として読みます。
func parseTrays(text string, allowZero bool) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%w: trays must be a whole number", ErrInvalidOrder)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: trays must not be negative", ErrInvalidOrder)
	}
	if n == 0 && !allowZero {
		return 0, fmt.Errorf("%w: trays must be greater than zero", ErrInvalidOrder)
	}
	return n, nil
}

func validateNames(route, product string) (string, string, error) {
	route, product = strings.TrimSpace(route), strings.TrimSpace(product)
	if route == "" || product == "" {
		return "", "", fmt.Errorf("%w: route and product are required", ErrInvalidOrder)
	}
	return route, product, nil
}

// UpdateOrder は i 番目の注文を書き換えます。在庫フラグは保持し、再集約はしません。
func (s Session) UpdateOrder(i int, route, product, traysText string) (Session, error) {
	if err := s.require("edit orders", StateOrdersReady); err != nil {
		return s, err
	}
	if err := s.orderAt(i); err != nil {
		return s, err
	}
	route, product, err := validateNames(route, product)
	if err != nil {
		return s, err
	}
	trays, err := parseTrays(traysText, true)
	if err != nil {
		return s, err
	}
	next := s.clone()
	o := &next.Data.Orders[i]
	o.Route, o.Product, o.Trays = route, product, trays
	return next, nil
}

// DeleteOrder は i 番目の注文を削除します。
func (s Session) DeleteOrder(i int) (Session, error) {
	if err := s.require("delete orders", StateOrdersReady); err != nil {
		return s, err
	}
	if err := s.orderAt(i); err != nil {
		return s, err
	}
	next := s.clone()
	next.Data.Orders = slices.Delete(next.Data.Orders, i, i+1)
	if len(next.Data.Orders) == 0 {
		next.State = StateIdle
		if len(next.Files) > 0 {
			next.State = StateFilesQueued
		}
	}
	return next, nil
}

// ToggleStock は i 番目の注文の在庫フラグを反転します。
func (s Session) ToggleStock(i int) (Session, error) {
	if err := s.require("toggle stock", StateOrdersReady); err != nil {
		return s, err
	}
	if err := s.orderAt(i); err != nil {
		return s, err
	}
	next := s.clone()
	next.Data.Orders[i].InStock = !next.Data.Orders[i].InStock
	return next, nil
}

// AddOrder は手入力の注文を末尾に追加します。製品名が空なら共通製品名を使います。
func (s Session) AddOrder(route, product, traysText string) (Session, error) {
	if err := s.require("add orders", StateOrdersReady); err != nil {
		return s, err
	}
	if strings.TrimSpace(product) == "" {
		product = s.GlobalProduct
	}
	route, product, err := validateNames(route, product)
	if err != nil {
		return s, err
	}
	trays, err := parseTrays(traysText, false)
	if err != nil {
		return s, err
	}
	next := s.clone()
	next.Data.Orders = append(next.Data.Orders, model.Order{Route: route, Product: product, Trays: trays})
	return next, nil
}

// AddPlaceholderOrder は編集前提の空の注文を末尾に追加します。
func (s Session) AddPlaceholderOrder() (Session, error) {
	if err := s.require("add orders", StateOrdersReady); err != nil {
		return s, err
	}
	product := s.GlobalProduct
	if product == "" {
		product = placeholderProduct
	}
	next := s.clone()
	next.Data.Orders = append(next.Data.Orders, model.Order{Route: placeholderRoute, Product: product})
	return next, nil
}

// SetGlobalProduct は共通製品名を設定します。注文は変更しません。
func (s Session) SetGlobalProduct(product string) (Session, error) {
	next := s.clone()
	next.GlobalProduct = product
	return next, nil
}

// ApplyProductToAll は全注文の製品名を共通製品名に置き換えます。
func (s Session) ApplyProductToAll() (Session, error) {
	if err := s.require("apply product", StateOrdersReady); err != nil {
		return s, err
	}
	product := strings.TrimSpace(s.GlobalProduct)
	if product == "" {
		return s, fmt.Errorf("%w: global product is empty", ErrInvalidOrder)
	}
	next := s.clone()
	for i := range next.Data.Orders {
		next.Data.Orders[i].Product = product
	}
	return next, nil
}

// SetSliceMode は伝票の分割モードを変更します。
func (s Session) SetSliceMode(mode model.SliceMode) (Session, error) {
	if mode != model.SliceDouble && mode != model.SliceSingle {
		return s, fmt.Errorf("unknown slice mode %q", mode)
	}
	next := s.clone()
	next.SliceMode = mode
	return next, nil
}

// SetSelectedDate は YYYY-MM-DD 形式の日付を設定します。
func (s Session) SetSelectedDate(date string) (Session, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return s, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	next := s.clone()
	next.SelectedDate = t.Format(DateLayout)
	return next, nil
}

// StartPreview は印刷プレビューに入ります。
func (s Session) StartPreview() (Session, error) {
	if err := s.require("preview", StateOrdersReady); err != nil {
		return s, err
	}
	if len(s.Data.Orders) == 0 {
		return s, ErrNoOrders
	}
	next := s.clone()
	next.State = StatePreviewing
	return next, nil
}

// EndPreview は編集画面に戻ります。
func (s Session) EndPreview() (Session, error) {
	if err := s.require("leave preview", StatePreviewing); err != nil {
		return s, err
	}
	next := s.clone()
	next.State = StateOrdersReady
	return next, nil
}

// Reset はファイルと注文を捨てて初期状態に戻します。
// 分割モードと選択日付は引き継ぎます。
func (s Session) Reset() Session {
	return Session{
		ID:           s.ID,
		State:        StateIdle,
		Data:         model.OrderData{Orders: []model.Order{}},
		SliceMode:    s.SliceMode,
		SelectedDate: s.SelectedDate,
	}
}

// UniqueProducts は注文に現れる製品名を出現順に返します。
func (s Session) UniqueProducts() []string {
	return aggregation.UniqueProducts(s.Data.Orders)
}

// DisplayIssueDate は印刷に使う発行日です。
// 選択日付があればそれを優先し、なければ抽出された日付を使います。
func (s Session) DisplayIssueDate() string {
	if t, err := time.Parse(DateLayout, s.SelectedDate); err == nil {
		return t.Format(IssueDateLayout)
	}
	return s.Data.IssueDate
}

// ReportFileName は出力ファイル名を返します (Order_Report_2025-10-15.pdf など)。
func (s Session) ReportFileName(ext string) string {
	return reportFilePrefix + s.SelectedDate + "." + strings.TrimPrefix(ext, ".")
}

// Report は現在の注文から印刷用レポートを作ります。
func (s Session) Report(now time.Time, companyName string) (render.Report, error) {
	if err := s.require("build a report", StateOrdersReady, StatePreviewing); err != nil {
		return render.Report{}, err
	}
	if len(s.Data.Orders) == 0 {
		return render.Report{}, ErrNoOrders
	}
	data := s.Data.Clone()
	data.IssueDate = s.DisplayIssueDate()
	report := render.BuildReport(data, s.SliceMode, now)
	report.CompanyName = companyName
	return report, nil
}
