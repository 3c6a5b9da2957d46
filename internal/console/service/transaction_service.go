package service

import (
	"context"
	"net/http"

	"github.com/xela07ax/anomaly-console/internal/domain"
	"go.uber.org/zap"
)

// TransactionsFailure: сообщение таблицы, когда бэкенд не ответил.
const TransactionsFailure = "Failed to fetch transactions."

// TransactionAPI: постраничный список транзакций.
type TransactionAPI interface {
	Transactions(ctx context.Context, q domain.TransactionQuery) ([]domain.Transaction, error)
}

// TransactionService отдаёт страницы таблицы; аномальные строки открывают детализацию.
type TransactionService struct {
	api    TransactionAPI
	detail func(error) (string, int)
	logger *zap.Logger
}

func NewTransactionService(api TransactionAPI, detail func(error) (string, int), logger *zap.Logger) *TransactionService {
	return &TransactionService{api: api, detail: detail, logger: logger.Named("transaction-service")}
}

// Page не возвращает ошибку: отказ бэкенда становится текстом в таблице.
func (s *TransactionService) Page(ctx context.Context, q domain.TransactionQuery) domain.TransactionPage {
	q = q.Normalize()
	page := domain.TransactionPage{Query: q, Items: []domain.Transaction{}, HasPrev: q.Page > 1}

	items, err := s.api.Transactions(ctx, q)
	if err != nil {
		s.logger.Warn("transactions fetch failed", zap.Int("page", q.Page), zap.Error(err))
		page.Error = s.failureMessage(err)
		return page
	}
	page.Items = items
	// Полная страница: возможно, есть следующая
	page.HasNext = len(items) >= domain.TransactionPageSize
	return page
}

func (s *TransactionService) failureMessage(err error) string {
	detail, status := s.detail(err)
	switch {
	case detail != "":
		return detail
	case status != 0:
		return http.StatusText(status)
	default:
		return TransactionsFailure
	}
}
