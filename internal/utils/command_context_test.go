package utils_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/reposync/internal/utils"
)

func TestCommandContextAccessorConfigurationFilePath(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()

	_, available := accessor.ConfigurationFilePath(context.Background())
	require.False(testInstance, available)

	executionContext := accessor.WithConfigurationFilePath(context.Background(), "/etc/reposync/config.yaml")
	configurationFilePath, available := accessor.ConfigurationFilePath(executionContext)
	require.True(testInstance, available)
	require.Equal(testInstance, "/etc/reposync/config.yaml", configurationFilePath)

	_, available = accessor.ConfigurationFilePath(accessor.WithConfigurationFilePath(context.Background(), ""))
	require.False(testInstance, available)
}

func TestCommandContextAccessorResolveRelativeToConfiguration(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()
	configuredContext := accessor.WithConfigurationFilePath(context.Background(), "/etc/reposync/config.yaml")

	testCases := []struct {
		name             string
		executionContext context.Context
		configuredPath   string
		expectedPath     string
	}{
		{name: "relative_with_configuration", executionContext: configuredContext, configuredPath: "repos.yaml", expectedPath: "/etc/reposync/repos.yaml"},
		{name: "relative_without_configuration", executionContext: context.Background(), configuredPath: "repos.yaml", expectedPath: "repos.yaml"},
		{name: "absolute", executionContext: configuredContext, configuredPath: "/srv/repos.yaml", expectedPath: "/srv/repos.yaml"},
		{name: "home_relative", executionContext: configuredContext, configuredPath: "~/repos.yaml", expectedPath: "~/repos.yaml"},
		{name: "blank", executionContext: configuredContext, configuredPath: "  ", expectedPath: ""},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			require.Equal(subTest, testCase.expectedPath, accessor.ResolveRelativeToConfiguration(testCase.executionContext, testCase.configuredPath))
		})
	}
}
