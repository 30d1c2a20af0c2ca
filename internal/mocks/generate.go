package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/subscription --output domain/subscription --outpkg subscriptionmock --filename repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/runlock --output domain/runlock --outpkg runlockmock --filename repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name LogRepository --dir ../domain/notification --output domain/notification --outpkg notificationmock --filename log_repository_mock.go
