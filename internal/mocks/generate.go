package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Publisher --dir ../domain/messaging --output domain/messaging --outpkg messagingmock --filename publisher_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name JetStream --dir ../infrastructure/messaging/jetstream --output transport/jetstream --outpkg jetstreammock --filename jetstream_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name DocumentFetcher --dir ../usecase --output usecase --outpkg usecasemock --filename document_fetcher_mock.go
