package service

import "context"

type testTxRepos struct {
	savedSearches SavedSearchRepositoryInterface
}

func (t *testTxRepos) SavedSearches() SavedSearchRepositoryInterface {
	return t.savedSearches
}

type testTxRunner struct {
	repos  TxRepositories
	called int
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called++
	return fn(t.repos)
}
